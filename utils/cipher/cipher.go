// Package cipher メッセージ本文の保存時暗号化
package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	prefix    = "sb1:"
	nonceSize = 24
	keySize   = 32
)

// ErrDecrypt 復号に失敗しました
var ErrDecrypt = errors.New("failed to decrypt")

var salt = []byte("hibiki/message-content")

// Cipher NaCl secretboxによる対称暗号
//
// nilのCipherは平文をそのまま扱います。
type Cipher struct {
	key [keySize]byte
}

// New secretから鍵を導出してCipherを生成します。secretが空の場合はnilを返します
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, nil
	}
	k, err := scrypt.Key([]byte(secret), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, err
	}
	c := &Cipher{}
	copy(c.key[:], k)
	return c, nil
}

// Seal 平文を暗号化します
func (c *Cipher) Seal(plain string) (string, error) {
	if c == nil {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return prefix + base64.RawStdEncoding.EncodeToString(box), nil
}

// Open 暗号文を復号します。暗号化されていない値はそのまま返します
func (c *Cipher) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, prefix) {
		return sealed, nil
	}
	if c == nil {
		return "", ErrDecrypt
	}
	box, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, prefix))
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

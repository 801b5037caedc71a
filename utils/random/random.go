package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

const (
	letters       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"
	letterIdxBits = 6
	letterIdxMask = 1<<letterIdxBits - 1
	letterIdxMax  = 63 / letterIdxBits
)

// ConnectionKeyLength WebSocketコネクションキーの長さ
const ConnectionKeyLength = 20

// AlphaNumeric 指定した文字数のランダム英数字文字列を生成します
// この関数はmath/randが生成する擬似乱数を使用します
func AlphaNumeric(n int) string {
	return generate(n, rand.Int64)
}

// SecureAlphaNumeric 指定した文字数のランダム英数字文字列を生成します
// この関数はcrypto/randが生成する暗号学的に安全な乱数を使用します
func SecureAlphaNumeric(n int) string {
	return generate(n, func() int64 {
		var b [8]byte
		if _, err := crand.Read(b[:]); err != nil {
			panic(err)
		}
		return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
	})
}

// ConnectionKey 新しいコネクションキーを生成します
func ConnectionKey() string {
	return SecureAlphaNumeric(ConnectionKeyLength)
}

func generate(n int, src func() int64) string {
	b := make([]byte, n)
	cache, remain := src(), letterIdxMax
	for i := n - 1; i >= 0; {
		if remain == 0 {
			cache, remain = src(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letters) {
			b[i] = letters[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}
	return string(b)
}

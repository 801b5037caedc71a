// Package auth WebSocketハンドシェイク及びAPIリクエストのJWT検証
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hibiki-social/hibiki/utils/validator"
)

// ErrInvalidToken トークンが不正です
var ErrInvalidToken = errors.New("invalid token")

var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Claims トークンのクレーム
//
// subがユーザーID、nameが表示名、pictureがアイコンの相対パスです。
type Claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier HMAC署名のトークン検証器
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier secretで署名されたトークンを検証するVerifierを生成します
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Verify トークンを検証し、クレームを返します
func (v *Verifier) Verify(token string) (*Claims, error) {
	if len(token) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods(validMethods), jwt.WithLeeway(v.leeway))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if len(claims.Subject) == 0 || validator.NoSpaceOrControl.Validate(claims.Subject) != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	return claims, nil
}

// Issue 新しいトークンを発行します
//
// ttlが0以下の場合は有効期限を設定しません。開発環境とテストで使用します。
func (v *Verifier) Issue(userID, name, picture string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:    name,
		Picture: picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

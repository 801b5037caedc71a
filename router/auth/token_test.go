package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	t.Parallel()

	v := NewVerifier("secret")

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		token, err := v.Issue("u1", "Alice", "avatars/u1.png", time.Hour)
		require.NoError(t, err)

		claims, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
		assert.Equal(t, "Alice", claims.Name)
		assert.Equal(t, "avatars/u1.png", claims.Picture)
	})

	t.Run("no expiration", func(t *testing.T) {
		t.Parallel()
		token, err := v.Issue("u1", "Alice", "", 0)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.NoError(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := v.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		token, err := NewVerifier("other").Issue("u1", "Alice", "", time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()
		token, err := v.Issue("", "Alice", "", time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		t.Parallel()
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

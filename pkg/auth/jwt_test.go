package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	v, err := NewJWTValidator("s3cret", "lineage")
	require.NoError(t, err)

	valid := Claims{
		Session: "abc",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "viewer",
			Issuer:    "lineage",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid bearer header", func(t *testing.T) {
		claims, err := v.ValidateToken("Bearer " + sign(t, "s3cret", valid))
		require.NoError(t, err)
		assert.Equal(t, "viewer", claims.Subject)
		assert.Equal(t, "abc", claims.Session)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := v.ValidateToken("Bearer ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ValidateToken(sign(t, "other", valid))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("expired", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.ValidateToken(sign(t, "s3cret", expired))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := valid
		other.Issuer = "someone-else"
		_, err := v.ValidateToken(sign(t, "s3cret", other))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator("", "")
	assert.Error(t, err)
}

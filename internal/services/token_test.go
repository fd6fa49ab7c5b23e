package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseBearerClaims(t *testing.T) {
	t.Run("extracts standard and custom claims", func(t *testing.T) {
		issued := time.Now().Add(-time.Minute).Truncate(time.Second)
		expires := time.Now().Add(time.Hour).Truncate(time.Second)
		token := signedTestToken(t, jwt.MapClaims{
			"sub":      "u-1138",
			"username": "OperatorX",
			"iat":      issued.Unix(),
			"exp":      expires.Unix(),
		})

		claims := ParseBearerClaims(token)
		require.NotNil(t, claims)
		assert.Equal(t, "u-1138", claims.Subject)
		assert.Equal(t, "OperatorX", claims.Username)
		require.NotNil(t, claims.IssuedAt)
		assert.Equal(t, issued.UTC(), *claims.IssuedAt)
		require.NotNil(t, claims.ExpiresAt)
		assert.Equal(t, expires.UTC(), *claims.ExpiresAt)
	})

	t.Run("missing optional claims stay nil", func(t *testing.T) {
		token := signedTestToken(t, jwt.MapClaims{"sub": "u-1"})

		claims := ParseBearerClaims(token)
		require.NotNil(t, claims)
		assert.Nil(t, claims.IssuedAt)
		assert.Nil(t, claims.ExpiresAt)
		assert.Empty(t, claims.Username)
	})

	t.Run("non-JWT tokens yield nil", func(t *testing.T) {
		assert.Nil(t, ParseBearerClaims("opaque-session-token"))
	})

	t.Run("empty token yields nil", func(t *testing.T) {
		assert.Nil(t, ParseBearerClaims(""))
	})
}

func TestTokenExpiry(t *testing.T) {
	assert.Nil(t, TokenExpiry(nil))

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedTestToken(t, jwt.MapClaims{"exp": expires.Unix()})
	claims := ParseBearerClaims(token)
	require.NotNil(t, claims)

	got := TokenExpiry(claims)
	require.NotNil(t, got)
	assert.Equal(t, expires.UTC(), *got)
}

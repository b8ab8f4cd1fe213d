package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthService(t *testing.T) {
	_, err := NewAuthService("", 0)

	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestAuthService_Passwords(t *testing.T) {
	auth, err := NewAuthService("secret", 0)
	require.NoError(t, err)

	// Given: a hashed password
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	// Then: only the original password matches
	assert.NotEqual(t, "password123", hash)
	assert.True(t, auth.ComparePassword(hash, "password123"))
	assert.False(t, auth.ComparePassword(hash, "password124"))
}

func TestAuthService_Tokens(t *testing.T) {
	user := &entity.User{ID: "user-1", Email: "alice@example.com"}

	t.Run("Round trip", func(t *testing.T) {
		auth, err := NewAuthService("secret", 0)
		require.NoError(t, err)

		// When: a token is generated and parsed
		token, err := auth.GenerateToken(user)
		require.NoError(t, err)

		claims, err := auth.ParseToken(token)
		require.NoError(t, err)

		// Then: the claims identify the user and expire in a week
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.InDelta(t, time.Now().Add(DefaultTokenTTL).Unix(), claims.ExpiresAt, 5)
	})

	t.Run("Expired token", func(t *testing.T) {
		auth, err := NewAuthService("secret", -time.Hour)
		require.NoError(t, err)

		token, err := auth.GenerateToken(user)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("Foreign secret", func(t *testing.T) {
		other, err := NewAuthService("other", 0)
		require.NoError(t, err)
		token, err := other.GenerateToken(user)
		require.NoError(t, err)

		auth, err := NewAuthService("secret", 0)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("Unsigned token", func(t *testing.T) {
		auth, err := NewAuthService("secret", 0)
		require.NoError(t, err)

		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = auth.ParseToken(token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("Garbage", func(t *testing.T) {
		auth, err := NewAuthService("secret", 0)
		require.NoError(t, err)

		_, err = auth.ParseToken("not-a-token")
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})
}

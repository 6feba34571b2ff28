package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/go-studyhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   int
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), 42),
			userId:   42,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %d", tc.userId)
		})
	}
}

func Test_extractUserIdFromToken(t *testing.T) {
	app := &StudyHubApp{signingKey: []byte("test-signing-key")}

	t.Run("round trip", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 7}, time.Minute)
		require.NoError(t, err)

		userId, err := app.extractUserIdFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, 7, userId)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 7}, -time.Minute)
		require.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := &StudyHubApp{signingKey: []byte("another-key")}
		token, err := other.createJwtForSession(types.User{Id: 7}, time.Minute)
		require.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err)
	})

	t.Run("missing user id claim", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			expClaim: time.Now().Add(time.Minute).Unix(),
		}).SignedString(app.signingKey)
		require.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.ErrorContains(t, err, "invalid user id claim")
	})
}

func Test_createJwtCookie(t *testing.T) {
	cookie := createJwtCookie("abc", time.Hour)

	assert.Equal(t, tokenCookieKey, cookie.Name)
	assert.Equal(t, "abc", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.True(t, cookie.Expires.After(time.Now()))
}

func Test_hashPassword(t *testing.T) {
	hash, err := hashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hash)
	assert.True(t, verifyPassword(hash, "password123"))
	assert.False(t, verifyPassword(hash, "wrong"))
}

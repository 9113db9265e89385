package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/config"
)

func newTestManager(secret string, ttl time.Duration) *TokenManager {
	return NewTokenManager(&config.Config{
		Auth: config.AuthConfig{JWTSecret: secret, AccessTokenTTL: ttl},
	})
}

func TestMintAndVerify(t *testing.T) {
	tm := newTestManager("test-secret", time.Hour)

	token, sessionID, err := tm.Mint("user-1", "I")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, sessionID)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "I", claims.UserType)
	assert.Equal(t, sessionID, claims.SessionID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm := newTestManager("secret-a", time.Hour)
	other := newTestManager("secret-b", time.Hour)

	token, _, err := tm.Mint("user-1", "I")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tm := newTestManager("test-secret", -time.Minute)

	token, _, err := tm.Mint("user-1", "I")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tm := newTestManager("test-secret", time.Hour)

	_, err := tm.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMintUniqueSessionIDs(t *testing.T) {
	tm := newTestManager("test-secret", time.Hour)

	_, first, err := tm.Mint("user-1", "I")
	require.NoError(t, err)
	_, second, err := tm.Mint("user-1", "I")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

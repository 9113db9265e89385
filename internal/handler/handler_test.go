package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/auth"
	"user-service/internal/config"
	"user-service/internal/policy"
	"user-service/internal/service"
)

func TestGetStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrSettingsNotFound, http.StatusNotFound},
		{service.ErrNoActiveSession, http.StatusNotFound},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrUnknownScope, http.StatusBadRequest},
		{service.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{service.ErrPermissionDenied, http.StatusForbidden},
		{service.ErrAccountLocked, http.StatusForbidden},
		{policy.ErrLimitExceeded, http.StatusForbidden},
		{service.ErrOTPInvalid, http.StatusConflict},
		{service.ErrAccountJustLocked, http.StatusConflict},
		{service.ErrAlreadyFollowing, http.StatusConflict},
		{service.ErrSettingsActive, http.StatusConflict},
		{policy.ErrConfigMissing, http.StatusInternalServerError},
		{policy.ErrInvalidConfig, http.StatusInternalServerError},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, getStatusCode(tc.err), "error %v", tc.err)
	}
}

func TestGetStatusCodeWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("send otp: %w", policy.ErrLimitExceeded)
	assert.Equal(t, http.StatusForbidden, getStatusCode(wrapped))

	wrapped = fmt.Errorf("get user: %w", service.ErrUserNotFound)
	assert.Equal(t, http.StatusNotFound, getStatusCode(wrapped))
}

func TestParsePositiveInt(t *testing.T) {
	assert.Equal(t, 7, parsePositiveInt("7", 1))
	assert.Equal(t, 1, parsePositiveInt("", 1))
	assert.Equal(t, 1, parsePositiveInt("0", 1))
	assert.Equal(t, 1, parsePositiveInt("-4", 1))
	assert.Equal(t, 1, parsePositiveInt("abc", 1))
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(&config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour},
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTestTokenManager()

	var seen service.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusOK)
	})
	protected := AuthMiddleware(tokens)(next)

	token, _, err := tokens.Mint("user-1", "A")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/user-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, "A", seen.UserType)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	protected := AuthMiddleware(newTestTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/user-1", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication required")
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	protected := AuthMiddleware(newTestTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/user-1", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

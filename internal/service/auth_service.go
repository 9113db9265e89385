package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"user-service/internal/repository/redis"
	"user-service/internal/util"
	"user-service/internal/validation"
)

// Logout scopes.
const (
	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

// AuthService handles session invalidation.
type AuthService struct {
	sessions sessionStore
}

func NewAuthService(sessions sessionStore) *AuthService {
	return &AuthService{sessions: sessions}
}

// Logout invalidates the caller's current session, or every session with
// the global scope. Logging out with nothing to invalidate is reported
// as ErrNoActiveSession, not silently swallowed.
func (s *AuthService) Logout(ctx context.Context, userID, scope string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if scope == "" {
		scope = ScopeLocal
	}

	var err error
	switch scope {
	case ScopeLocal:
		err = s.sessions.InvalidateSession(ctx, userID)
	case ScopeGlobal:
		err = s.sessions.InvalidateAllSessions(ctx, userID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}

	if err != nil {
		if errors.Is(err, redis.ErrNoActiveSession) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("logout failed: %w", err)
	}

	util.Info("User logged out",
		zap.String("user_id", userID),
		zap.String("scope", scope))
	return nil
}

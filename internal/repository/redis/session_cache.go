package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-service/internal/client"
	"user-service/internal/util"
)

const (
	activeSessionPrefix = "active_session:"
	userSessionsPrefix  = "user_sessions:"
)

// ErrNoActiveSession means the user has no session to invalidate.
var ErrNoActiveSession = errors.New("no active session")

// SessionCache tracks issued access-token sessions per user so logout can
// invalidate the current one or all of them.
type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

func (c *SessionCache) SetActiveSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := c.client.Pipeline()
	pipe.Set(ctx, activeSessionPrefix+userID, sessionID, ttl)
	userSessionsKey := userSessionsPrefix + userID
	pipe.SAdd(ctx, userSessionsKey, sessionID)
	pipe.Expire(ctx, userSessionsKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to set active session",
			zap.String("user_id", userID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("failed to set active session: %w", err)
	}

	util.Debug("Active session set",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Duration("ttl", ttl))
	return nil
}

func (c *SessionCache) GetActiveSession(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := activeSessionPrefix + userID
	sessionID, err := c.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return "", ErrNoActiveSession
		}
		util.Error("Failed to get active session",
			zap.String("user_id", userID),
			zap.Error(err))
		return "", fmt.Errorf("failed to get active session: %w", err)
	}

	return sessionID, nil
}

// InvalidateSession removes the user's current session only.
func (c *SessionCache) InvalidateSession(ctx context.Context, userID string) error {
	sessionID, err := c.GetActiveSession(ctx, userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := c.client.Pipeline()
	pipe.Del(ctx, activeSessionPrefix+userID)
	pipe.SRem(ctx, userSessionsPrefix+userID, sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to invalidate session",
			zap.String("user_id", userID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	util.Info("Session invalidated",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
	return nil
}

// InvalidateAllSessions removes every session the user holds.
func (c *SessionCache) InvalidateAllSessions(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sessions, err := c.client.SMembers(ctx, userSessionsPrefix+userID)
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	if len(sessions) == 0 {
		return ErrNoActiveSession
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, activeSessionPrefix+userID)
	pipe.Del(ctx, userSessionsPrefix+userID)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to invalidate all user sessions",
			zap.String("user_id", userID),
			zap.Int("session_count", len(sessions)),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate all user sessions: %w", err)
	}

	util.Info("All user sessions invalidated",
		zap.String("user_id", userID),
		zap.Int("session_count", len(sessions)))
	return nil
}

package service

import (
	"context"
	"io"
	"time"

	"user-service/internal/models"
)

// Narrow views of the cache, audit, event, search, and media dependencies.
// Services depend on these instead of the concrete clients so tests can
// substitute in-memory fakes.

type otpStore interface {
	SetOTP(ctx context.Context, phoneHash, hashedOTP string, ttl time.Duration) error
	GetOTP(ctx context.Context, phoneHash string) (string, error)
	DeleteOTP(ctx context.Context, phoneHash string) error
}

type sessionStore interface {
	SetActiveSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error
	InvalidateSession(ctx context.Context, userID string) error
	InvalidateAllSessions(ctx context.Context, userID string) error
}

type auditRecorder interface {
	Record(ctx context.Context, event *models.SecurityEvent) error
}

type eventPublisher interface {
	Publish(ctx context.Context, topic, key string, attributes map[string]string) error
}

type profileIndexer interface {
	IndexProfile(ctx context.Context, user *models.User) error
	Search(ctx context.Context, term string, size int) ([]models.ProfileDocument, error)
}

type photoUploader interface {
	UploadImage(ctx context.Context, file io.Reader, publicID string) (string, error)
}

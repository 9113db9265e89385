package scylla

import (
	"context"
	"errors"
	"time"

	"user-service/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrLocked is returned by GetActiveByPhoneHash when the account exists
// but its lockout has not expired.
var ErrLocked = errors.New("account locked")

// UserRepository defines storage operations over the user record.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByPhoneHash(ctx context.Context, phoneHash string) (*models.User, error)
	// GetActiveByPhoneHash excludes accounts whose lockout has not expired.
	GetActiveByPhoneHash(ctx context.Context, phoneHash string, now time.Time) (*models.User, error)
	UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, userID, status string) error
	UpdateLockout(ctx context.Context, userID string, failedCount int, lockoutTime *time.Time, status string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdatePhotoURL(ctx context.Context, userID, url string) error
	IncrementFollowerCount(ctx context.Context, userID string) error
	IncrementFollowingCount(ctx context.Context, userID string) error
	HealthCheck(ctx context.Context) error
}

// FollowerRepository defines storage operations over follow edges.
type FollowerRepository interface {
	Exists(ctx context.Context, userID, followerID string) (bool, error)
	Add(ctx context.Context, userID, followerID string, at time.Time) error
	// ListPage returns one page of followers, newest first. Offsets past
	// the end yield an empty page, not an error.
	ListPage(ctx context.Context, userID string, offset, size int) ([]*models.FollowerEdge, error)
}

// OTPSettingsRepository manages the configurable rate-limit policy rows.
type OTPSettingsRepository interface {
	GetActive(ctx context.Context) (*models.OTPSettings, error)
	GetByID(ctx context.Context, id string) (*models.OTPSettings, error)
	Insert(ctx context.Context, settings *models.OTPSettings) error
	Update(ctx context.Context, settings *models.OTPSettings) error
	// DeleteInactive removes the row only when it is not the active one.
	DeleteInactive(ctx context.Context, id string) error
}

// OTPRequestRepository is the append-only OTP send log.
type OTPRequestRepository interface {
	Append(ctx context.Context, phoneHash string, at time.Time) error
	// CountWindow counts sends in [start, end], inclusive of both bounds.
	CountWindow(ctx context.Context, phoneHash string, start, end time.Time) (int, error)
}

package policy

import (
	"errors"
	"fmt"
	"time"

	"user-service/internal/models"
)

var (
	// ErrConfigMissing means no active otp_settings row exists.
	ErrConfigMissing = errors.New("otp rate-limit configuration missing")
	// ErrInvalidConfig means the stored time_unit is not a recognized unit.
	ErrInvalidConfig = errors.New("otp rate-limit configuration invalid")
	// ErrLimitExceeded means the phone hit the configured send limit.
	ErrLimitExceeded = errors.New("otp request limit exceeded")
)

// WindowStart converts the configured window into its start time. The
// window always ends at now; counting over it is inclusive of both bounds.
// An unrecognized unit is a configuration error, never a default.
func WindowStart(now time.Time, unit string, count int) (time.Time, error) {
	switch unit {
	case models.TimeUnitDays:
		return now.AddDate(0, 0, -count), nil
	case models.TimeUnitHours:
		return now.Add(-time.Duration(count) * time.Hour), nil
	case models.TimeUnitMinutes:
		return now.Add(-time.Duration(count) * time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown time_unit %q", ErrInvalidConfig, unit)
	}
}

// CheckLimit applies the configured cap to a window count.
func CheckLimit(requestCount, maxAttempts int) error {
	if requestCount >= maxAttempts {
		return fmt.Errorf("%w: %d requests with limit %d", ErrLimitExceeded, requestCount, maxAttempts)
	}
	return nil
}

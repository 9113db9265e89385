package validation

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"user-service/internal/models"
)

var (
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidAccountStatus = errors.New("invalid account status")
	ErrInvalidSettings      = errors.New("invalid otp settings")
)

// Defaults applied when otp-settings query parameters are omitted.
const (
	DefaultTimeUnit       = models.TimeUnitDays
	DefaultTimeUnitsCount = 1
	DefaultMaxOTPAttempts = 15
)

// ValidateUserID checks that id is a well-formed UUID.
func ValidateUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidUserID
	}
	return nil
}

// ValidateAccountStatus accepts only the Active and Suspended markers.
func ValidateAccountStatus(status string) error {
	if status != models.AccountStatusActive && status != models.AccountStatusSuspended {
		return ErrInvalidAccountStatus
	}
	return nil
}

// ParseSettingsParams validates the otp-settings query parameters,
// applying defaults for omitted values. The unit is never defaulted when
// present but unrecognized.
func ParseSettingsParams(unit, countStr, maxStr string) (string, int, int, error) {
	if unit == "" {
		unit = DefaultTimeUnit
	}
	switch unit {
	case models.TimeUnitDays, models.TimeUnitHours, models.TimeUnitMinutes:
	default:
		return "", 0, 0, fmt.Errorf("%w: unknown time_unit %q", ErrInvalidSettings, unit)
	}

	count := DefaultTimeUnitsCount
	if countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil || parsed <= 0 {
			return "", 0, 0, fmt.Errorf("%w: time_units_count must be a positive integer", ErrInvalidSettings)
		}
		count = parsed
	}

	max := DefaultMaxOTPAttempts
	if maxStr != "" {
		parsed, err := strconv.Atoi(maxStr)
		if err != nil || parsed <= 0 {
			return "", 0, 0, fmt.Errorf("%w: max_otp_count must be a positive integer", ErrInvalidSettings)
		}
		max = parsed
	}

	return unit, count, max, nil
}

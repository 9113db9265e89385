package service

import "errors"

// Sentinel errors mapped to HTTP status codes at the handler layer.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSettingsNotFound = errors.New("otp settings not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAccountLocked rejects OTP operations while a lockout is in force.
	ErrAccountLocked = errors.New("account is locked")
	// ErrAccountJustLocked is returned on the failed attempt that trips
	// the lockout threshold.
	ErrAccountJustLocked = errors.New("account locked after repeated failures")
	// ErrOTPInvalid covers wrong, expired, and never-issued codes alike.
	ErrOTPInvalid = errors.New("invalid or expired otp")

	ErrAlreadyFollowing = errors.New("already following")

	// ErrSettingsActive blocks deletion of the active rate-limit row.
	ErrSettingsActive = errors.New("cannot delete active otp settings")

	// ErrUnknownScope rejects logout scopes other than local and global.
	ErrUnknownScope = errors.New("unknown logout scope")
	// ErrNoActiveSession reports a logout with nothing to invalidate.
	ErrNoActiveSession = errors.New("no active session")

	// ErrUnsupportedMedia rejects profile photos that are not JPEG or PNG.
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

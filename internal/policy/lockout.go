package policy

import "time"

// Fixed lockout policy. Three consecutive failed verifications lock the
// account for one hour; any successful verification clears everything.
const (
	FailureThreshold = 3
	LockoutDuration  = time.Hour
)

// LockState is the per-user verification state persisted on the account.
// A nil LockedUntil means the account is not locked.
type LockState struct {
	FailedCount int
	LockedUntil *time.Time
}

// Event is a verification outcome applied to a LockState.
type Event int

const (
	EventVerifyFailed Event = iota
	EventVerifySucceeded
)

// Apply advances the lockout state machine for one verification event.
// It is pure: callers persist the returned state themselves.
func Apply(s LockState, ev Event, now time.Time) LockState {
	switch ev {
	case EventVerifySucceeded:
		return LockState{}
	case EventVerifyFailed:
		next := s.FailedCount + 1
		if next >= FailureThreshold {
			until := now.Add(LockoutDuration)
			return LockState{FailedCount: 0, LockedUntil: &until}
		}
		return LockState{FailedCount: next}
	default:
		return s
	}
}

// IsLocked reports whether verification attempts must be rejected at the
// gate, before any OTP comparison happens.
func IsLocked(s LockState, now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

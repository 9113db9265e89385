package policy

import (
	"testing"
	"time"
)

func TestApplyFailuresBelowThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := LockState{}
	s = Apply(s, EventVerifyFailed, now)
	if s.FailedCount != 1 || s.LockedUntil != nil {
		t.Fatalf("after 1 failure: %+v", s)
	}

	s = Apply(s, EventVerifyFailed, now)
	if s.FailedCount != 2 || s.LockedUntil != nil {
		t.Fatalf("after 2 failures: %+v", s)
	}
	if IsLocked(s, now) {
		t.Fatal("account locked before reaching the threshold")
	}
}

func TestApplyThirdFailureLocks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := LockState{}
	for i := 0; i < FailureThreshold; i++ {
		s = Apply(s, EventVerifyFailed, now)
	}

	if s.LockedUntil == nil {
		t.Fatal("expected lockout after 3 consecutive failures")
	}
	if !s.LockedUntil.Equal(now.Add(LockoutDuration)) {
		t.Fatalf("lockout expiry = %v, want %v", s.LockedUntil, now.Add(LockoutDuration))
	}
	if s.FailedCount != 0 {
		t.Fatalf("failed count = %d, want 0 after locking", s.FailedCount)
	}

	if !IsLocked(s, now) {
		t.Fatal("expected account locked immediately after lock")
	}
	if !IsLocked(s, now.Add(59*time.Minute)) {
		t.Fatal("expected account still locked before expiry")
	}
	if IsLocked(s, now.Add(LockoutDuration)) {
		t.Fatal("expected account unlocked once expiry passes")
	}
}

func TestApplySuccessResetsEverything(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(LockoutDuration)

	tests := []struct {
		name  string
		state LockState
	}{
		{name: "from counted failures", state: LockState{FailedCount: 2}},
		{name: "from locked", state: LockState{LockedUntil: &until}},
		{name: "from clean", state: LockState{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.state, EventVerifySucceeded, now)
			if got.FailedCount != 0 || got.LockedUntil != nil {
				t.Fatalf("success from %+v gave %+v, want zero state", tt.state, got)
			}
		})
	}
}

package policy

import (
	"errors"
	"testing"
	"time"
)

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		unit  string
		count int
		want  time.Time
	}{
		{name: "one hour", unit: "hours", count: 1, want: now.Add(-time.Hour)},
		{name: "thirty minutes", unit: "min", count: 30, want: now.Add(-30 * time.Minute)},
		{name: "two days", unit: "days", count: 2, want: now.AddDate(0, 0, -2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WindowStart(now, tt.unit, tt.count)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("WindowStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowStartRejectsUnknownUnit(t *testing.T) {
	now := time.Now()
	for _, unit := range []string{"", "weeks", "minutes", "seconds"} {
		if _, err := WindowStart(now, unit, 1); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("unit %q: error = %v, want %v", unit, err, ErrInvalidConfig)
		}
	}
}

func TestCheckLimit(t *testing.T) {
	if err := CheckLimit(2, 3); err != nil {
		t.Fatalf("below limit: unexpected error %v", err)
	}
	if err := CheckLimit(3, 3); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("at limit: error = %v, want %v", err, ErrLimitExceeded)
	}
	if err := CheckLimit(10, 3); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("above limit: error = %v, want %v", err, ErrLimitExceeded)
	}
}

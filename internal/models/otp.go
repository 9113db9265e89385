package models

import "time"

// OTP settings criteria status values. Only one row is active at a time.
const (
	SettingsStatusActive   = "active"
	SettingsStatusInactive = "inactive"
)

// Accepted time_unit values for the OTP rate-limit window.
const (
	TimeUnitDays    = "days"
	TimeUnitHours   = "hours"
	TimeUnitMinutes = "min"
)

// OTPSettings is the configurable rate-limit policy for OTP sends.
type OTPSettings struct {
	ID             string    `db:"id" json:"id"`
	TimeUnit       string    `db:"time_unit" json:"time_unit"`
	TimeUnitsCount int       `db:"time_units_count" json:"time_units_count"`
	MaxOTPAttempts int       `db:"max_otp_attempts" json:"max_otp_attempts"`
	CriteriaStatus string    `db:"criteria_status" json:"criteria_status"`
	LastUpdated    time.Time `db:"last_updated" json:"last_updated"`
}

// OTPRequest is one row of the append-only OTP send log, used only for
// rate-limit window counting.
type OTPRequest struct {
	PhoneHash   string    `db:"phone_hash" json:"-"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}

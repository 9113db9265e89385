package models

import "time"

// Security event types recorded in the ClickHouse audit trail.
const (
	EventOTPSent        = "otp_sent"
	EventOTPVerifyFail  = "otp_verify_fail"
	EventAccountLocked  = "account_locked"
	EventStatusChanged  = "status_changed"
	EventUserRegistered = "user_registered"
)

type SecurityEvent struct {
	EventBucket int       `db:"event_bucket"`
	UserID      string    `db:"user_id"`
	EventDate   string    `db:"event_date"`
	EventTime   time.Time `db:"event_time"`
	EventType   string    `db:"event_type"`
	PhoneHash   string    `db:"phone_hash"`
	Details     string    `db:"details"`
}

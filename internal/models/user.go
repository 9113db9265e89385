package models

import "time"

// Account status values stored in users.account_status.
const (
	AccountStatusActive    = "A"
	AccountStatusSuspended = "S"
)

// User type values stored in users.user_type.
const (
	UserTypeAdmin      = "A"
	UserTypeIndividual = "I"
)

type User struct {
	UserID            string     `db:"user_id" json:"user_id"`
	BucketID          int        `db:"bucket_id" json:"-"`
	PhoneHash         string     `db:"phone_hash" json:"-"`
	PhoneEncrypted    []byte     `db:"phone_encrypted" json:"-"`
	PhoneKeyID        string     `db:"phone_key_id" json:"-"`
	FirstName         string     `db:"first_name" json:"first_name,omitempty"`
	LastName          string     `db:"last_name" json:"last_name,omitempty"`
	Username          string     `db:"username" json:"username,omitempty"`
	Gender            string     `db:"gender" json:"gender,omitempty"`
	DOB               string     `db:"dob" json:"dob,omitempty"`
	Bio               string     `db:"bio" json:"bio,omitempty"`
	Email             string     `db:"email" json:"email,omitempty"`
	ProfilePictureURL string     `db:"profile_picture_url" json:"profile_picture_url,omitempty"`
	AccountStatus     string     `db:"account_status" json:"account_status"`
	UserType          string     `db:"user_type" json:"user_type"`
	Rank              int        `db:"rank" json:"rank"`
	FollowerCount     int        `db:"follower_count" json:"follower_count"`
	FollowingCount    int        `db:"following_count" json:"following_count"`
	FailedLoginCount  int        `db:"failed_login_count" json:"-"`
	LockoutTime       *time.Time `db:"lockout_time" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	LastLogin         *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// ProfileDocument is the search projection indexed in Elasticsearch.
type ProfileDocument struct {
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Bio               string `json:"bio"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowerCount     int    `json:"follower_count"`
}

package validation

import "errors"

// OTPLength is the fixed length of issued one-time passwords.
const OTPLength = 6

var (
	ErrOTPMissing     = errors.New("otp is required")
	ErrOTPWrongLength = errors.New("otp has wrong length")
)

// ValidateOTP checks the shape of a submitted one-time password.
func ValidateOTP(code string) error {
	if code == "" {
		return ErrOTPMissing
	}
	if len(code) != OTPLength {
		return ErrOTPWrongLength
	}
	return nil
}

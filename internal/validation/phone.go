package validation

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrPhoneInvalidFormat = errors.New("phone number is not in international format")
	ErrPhoneInvalidNumber = errors.New("phone number is not a valid assignable number")
	ErrPhoneTooLong       = errors.New("phone number exceeds E.164 length")
)

// maxE164Digits is the E.164 cap on national significant digits.
const maxE164Digits = 15

// ValidatePhone parses a phone number expected in international form and
// returns its normalized E.164 representation.
func ValidatePhone(phone string) (string, error) {
	parsed, err := phonenumbers.Parse(strings.TrimSpace(phone), "")
	if err != nil {
		return "", ErrPhoneInvalidFormat
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrPhoneInvalidNumber
	}

	e164 := phonenumbers.Format(parsed, phonenumbers.E164)
	if len(strings.TrimPrefix(e164, "+")) > maxE164Digits {
		return "", ErrPhoneTooLong
	}

	return e164, nil
}

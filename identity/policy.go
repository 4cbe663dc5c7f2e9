package identity

import (
	"errors"
	"fmt"
)

// Password length bounds, counted in runes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

// Policy violations, reported in check order.
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNoUpper  = errors.New("password must contain an uppercase letter")
	ErrPasswordNoLower  = errors.New("password must contain a lowercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain a digit")
	ErrPasswordTooLong  = errors.New("password must be at most 100 characters")
)

// CheckPassword applies the registration password policy and returns the
// first violated rule, or nil. Character classes are ASCII only.
func CheckPassword(password string) error {
	runes := []rune(password)
	if len(runes) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(runes) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var upper, lower, digit bool
	for _, r := range runes {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}

	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !lower:
		return ErrPasswordNoLower
	case !digit:
		return ErrPasswordNoDigit
	}
	return nil
}

// CheckPasswordBytes rejects passwords longer than limit bytes, the input
// bound of hashers such as bcrypt. A limit <= 0 disables the check.
func CheckPasswordBytes(password string, limit int) error {
	if limit > 0 && len(password) > limit {
		return fmt.Errorf("%w (%d bytes max)", ErrPasswordTooLong, limit)
	}
	return nil
}

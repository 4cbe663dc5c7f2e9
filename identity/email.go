package identity

import (
	"regexp"
	"strings"
)

const maxEmailLength = 255

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

// NormalizeEmail trims surrounding whitespace and lowercases. It is
// idempotent and must be applied at every entry point before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized email is acceptable.
func ValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	return emailPattern.MatchString(email)
}

package auth

import (
	"regexp"
	"time"
)

// emailPattern is a permissive structural check: something before an
// @, something after, one dot in the domain. Proper verification is a
// confirmation email's job, not a regex's.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValidEmail checks if an email address is structurally plausible.
func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// IsValidPassword checks if a password meets the length requirement.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLength
}

// User represents a registered account.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // never serialised
	RefreshTokenHash string    `json:"-"` // never serialised
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

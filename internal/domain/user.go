package domain

import (
	"strings"
	"time"
)

// User represents a platform account.
type User struct {
	ID            string
	Username      string
	FirstName     string
	LastName      string
	Email         string
	PasswordHash  []byte
	LastProjectID *string
	CreatedAt     time.Time
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the persistent account record. PasswordHash and RefreshToken are
// write-only from the API's perspective: requests carry plaintext, responses
// never carry either field, and Sanitized strips them before the record
// leaves the core.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            string     `json:"role"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	RefreshToken    string     `json:"-"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Sanitized returns a copy of the user with the credential hash and the
// stored refresh token removed.
func (u *User) Sanitized() *User {
	clone := *u
	clone.PasswordHash = ""
	clone.RefreshToken = ""
	return &clone
}

// NormalizeEmail lowercases and trims an address so email uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

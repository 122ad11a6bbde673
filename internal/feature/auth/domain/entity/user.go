// Package entity defines the domain entities for the auth feature.
package entity

import (
	"strings"
	"time"
)

// User represents a registered user in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey"`

	// Email is the login identifier. It must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Username is derived from the local part of Email at signup.
	Username string `gorm:"size:150;not null"`

	// Password is the bcrypt hash of the user's password.
	Password string `gorm:"size:255;not null"`

	// EmailVerified only ever moves from false to true.
	EmailVerified bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsernameFromEmail returns the local part of an email address.
// An address without "@" is returned unchanged.
func UsernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	return local
}

// Package domain contains entity without logic, just meta-data
package domain

import (
	"strconv"
	"time"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 36
	// AnonymousName is reported for sessions that never authenticated.
	AnonymousName = "Anonymous"
	// SystemSender signs notices generated by the server itself.
	SystemSender = "System"
)

type UserID int64

func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated pair bound to a session after login.
type Identity struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// ValidateUsername applies the length rules shared by registration and lookups.
func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")

	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotGroup           = errors.New("not a group room")
	ErrPersistence        = errors.New("persistence failure")
	ErrBadPayload         = errors.New("bad payload")
	ErrRateLimited        = errors.New("rate limited")
)

// ErrUserNotFound is an ErrNotFound that names a user rather than a room.
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

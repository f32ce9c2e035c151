package auth

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserStore is the persistence contract of the auth core. Implementations
// must enforce email uniqueness atomically and report a violation as
// ErrEmailTaken.
type UserStore interface {
	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (User, error)
	// Insert stores a new user and returns it with ID and timestamps set.
	Insert(ctx context.Context, user User) (User, error)
	// Update persists username, password hash, confirmation and avatar.
	// Confirmation never goes from true back to false.
	Update(ctx context.Context, user User) error
}

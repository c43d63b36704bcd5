package domain

import (
	"context"
	"time"
)

// User is the chat core's view of an account owned by the identity provider.
type User struct {
	ID       string    `json:"id" validate:"required,max=64"`
	Username string    `json:"username" validate:"required,notblank,max=150"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// UserRepository defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	// Create stores a new user; it fails with ErrAlreadyExists on a duplicate ID.
	Create(ctx context.Context, user *User) (*User, error)
	SetPresence(ctx context.Context, id string, online bool, seen time.Time) error
}

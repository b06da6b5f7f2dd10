// Package users maps GitHub identities onto local accounts. The immutable
// github_id is the lookup key; the login is stored as a display handle and
// refreshed at every sign-in because GitHub lets users rename themselves.
package users

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// User is a local account tied to a GitHub identity.
type User struct {
	ID             int64     `json:"id"`
	GithubID       int64     `json:"github_id"`
	GithubUsername string    `json:"github_username"`
	CreatedAt      time.Time `json:"-"`
}

// Store persists user accounts.
type Store interface {
	// Upsert finds or creates the account for the GitHub identity. Repeated
	// sign-ins with the same github_id always resolve to the same row; the
	// stored login is refreshed on every call.
	Upsert(ctx context.Context, githubID int64, githubUsername string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Package session implements the server-side login session model. The
// browser holds only an opaque signed identifier; everything the request
// pipeline needs about the caller lives in the session record.
package session

import (
	"context"
	"errors"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TTL is the session lifetime. It is sliding: every authenticated request
// pushes the expiry out by the full TTL again.
const TTL = 30 * 24 * time.Hour

// ErrNotFound is returned when a session id does not resolve to a live
// record, whether it never existed, expired, or was destroyed.
var ErrNotFound = errors.New("session not found")

// Claims is what authorization decisions read about the caller. It is
// populated once at login and never refetched from the identity provider.
type Claims struct {
	UserID         int64
	GithubUsername string
	AccessToken    string
}

// Session is a server-side login record keyed by an opaque id.
type Session struct {
	ID        string
	Claims    Claims
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewID returns a lexicographically sortable session identifier.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

type ctxKey struct{}

// NewContext attaches the session to the request context.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the session placed by the authentication middleware.
// The second return is false for anonymous requests.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

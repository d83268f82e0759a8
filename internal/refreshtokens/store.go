// Package refreshtokens persists refresh tokens with logical expiry and a
// single live session per user.
package refreshtokens

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for tokens that are absent or expired.
var ErrNotFound = errors.New("refreshtokens: not found")

type Record struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store is the persistence contract for refresh tokens.
//
// Persist replaces every token the user already holds, so logging in
// elsewhere ends prior sessions. Concurrent logins for one user race and
// the last commit wins.
type Store interface {
	Persist(ctx context.Context, token, userID string, expiresAt time.Time) error
	Lookup(ctx context.Context, token string) (Record, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID string) error
}

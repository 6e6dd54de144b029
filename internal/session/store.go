// Package session manages server-side login sessions for authgate.
//
// Sessions are kept in layers that share the Store interface:
//   - MemoryStore: the token to user id map
//   - ExpiringStore: wraps a store and enforces a fixed lifetime
//   - PersistentStore: wraps an ExpiringStore and mirrors every change to a Repository
//
// Each layer only talks to the layer directly beneath it. The ExpiringStore is
// the single place where expiry is decided; repositories never judge expiry.
//
// Basic usage:
//
//	mem := session.NewMemoryStore()
//	exp := session.NewExpiringStore(mem, time.Hour)
//	store := session.NewPersistentStore(exp, repo)
//
//	token, err := store.Create(ctx, "user-1")
//	userID := store.Lookup(ctx, token).OrEmpty()
package session

import (
	"context"
	"errors"
	"time"

	"github.com/samber/mo"
)

// Errors returned by session stores.
var (
	// ErrInvalidUserID is returned when a session is requested for an empty user id.
	ErrInvalidUserID = errors.New("session: invalid user id")

	// ErrTokenCollision is returned when a generated token is already in use.
	ErrTokenCollision = errors.New("session: token collision")

	// ErrSessionCreationFailed is returned when no unused token could be generated.
	ErrSessionCreationFailed = errors.New("session: creation failed")

	// ErrPersistenceFailure is returned when the durable repository rejects a write.
	ErrPersistenceFailure = errors.New("session: persistence failure")
)

// Record is a single session as seen by the persistence layer.
type Record struct {
	CreatedAt time.Time `json:"created_at"`
	Token     string    `json:"session_id"`
	UserID    string    `json:"user_id"`
}

// Store is the capability shared by every session layer.
// All implementations must be safe for concurrent use.
type Store interface {
	// Create starts a session for userID and returns its token.
	Create(ctx context.Context, userID string) (string, error)

	// Lookup returns the user id bound to token, or none when the token is
	// empty, unknown, expired, or destroyed.
	Lookup(ctx context.Context, token string) mo.Option[string]

	// Destroy ends the session. It reports whether a session was removed and
	// is safe to call repeatedly.
	Destroy(ctx context.Context, token string) (bool, error)
}

// Restorer is implemented by stores that can re-insert a known session,
// typically while hydrating from a Repository after a restart.
type Restorer interface {
	Restore(ctx context.Context, token, userID string) error
}

// Counter is implemented by stores that can report how many sessions they hold.
type Counter interface {
	Len() int
}

// Repository is the durable mirror used by PersistentStore.
type Repository interface {
	// Save writes rec, replacing any record with the same token.
	Save(ctx context.Context, rec Record) error

	// FindByToken returns the stored record for token.
	FindByToken(ctx context.Context, token string) (mo.Option[Record], error)

	// DeleteByToken removes the record and reports whether one existed.
	DeleteByToken(ctx context.Context, token string) (bool, error)
}

// Lister is implemented by repositories that can enumerate every record.
// PersistentStore.Hydrate uses it to warm memory at startup.
type Lister interface {
	All(ctx context.Context) ([]Record, error)
}

// Redact shortens a token for logging.
func Redact(token string) string {
	const keep = 8
	if len(token) <= keep {
		return token
	}
	return token[:keep] + "..."
}

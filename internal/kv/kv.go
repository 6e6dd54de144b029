// Package kv is the key/value substrate behind authgate's cache-backed
// session repository.
//
// Two backends are available:
//   - Local mode (Ristretto): in-process, lost on restart
//   - Cluster mode (Olric): shared by every authgate instance, embedded or client
//
// Unlike a plain cache, writes are acknowledged only once they are readable,
// and a write the backend refuses to admit is reported as ErrRejected.
package kv

import (
	"context"
	"errors"
	"time"
)

// Standard errors for kv operations.
var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("kv: store is closed")

	// ErrRejected is returned when the backend declines to keep a value.
	ErrRejected = errors.New("kv: write rejected by backend")
)

// Store is a byte-oriented key/value store. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key. A positive ttl bounds how long the backend
	// keeps it; zero keeps it until deleted.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Close releases the backend. Further calls return ErrClosed.
	Close() error
}

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

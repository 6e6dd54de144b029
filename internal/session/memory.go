package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/mo"
)

// createAttempts bounds token generation: the first try plus one retry on collision.
const createAttempts = 2

// MemoryStore is the in-process token to user id map.
type MemoryStore struct {
	users    map[string]string
	generate TokenGenerator
	mu       sync.RWMutex
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTokenGenerator replaces the default UUID token generator.
func WithTokenGenerator(g TokenGenerator) MemoryOption {
	return func(s *MemoryStore) {
		if g != nil {
			s.generate = g
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users:    make(map[string]string),
		generate: UUIDGenerator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create binds a new token to userID.
// A colliding token is regenerated once before ErrSessionCreationFailed is returned.
func (s *MemoryStore) Create(_ context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUserID
	}

	var lastErr error
	for range createAttempts {
		token, err := s.generate()
		if err != nil {
			lastErr = err
			continue
		}
		if token == "" {
			lastErr = ErrTokenCollision
			continue
		}
		if s.insert(token, userID) {
			return token, nil
		}
		lastErr = ErrTokenCollision
		logger().Warn().Str("token", Redact(token)).Msg("session token collision, regenerating")
	}

	return "", fmt.Errorf("%w: %w", ErrSessionCreationFailed, lastErr)
}

// Lookup returns the user id bound to token.
func (s *MemoryStore) Lookup(_ context.Context, token string) mo.Option[string] {
	if token == "" {
		return mo.None[string]()
	}

	s.mu.RLock()
	userID, ok := s.users[token]
	s.mu.RUnlock()

	return mo.TupleToOption(userID, ok)
}

// Destroy removes token. The error is always nil for the memory store.
func (s *MemoryStore) Destroy(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token]; !ok {
		return false, nil
	}
	delete(s.users, token)
	return true, nil
}

// Restore re-inserts a session issued earlier, e.g. by a previous process.
// It never replaces an existing token.
func (s *MemoryStore) Restore(_ context.Context, token, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	if token == "" || !s.insert(token, userID) {
		return ErrTokenCollision
	}
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryStore) insert(token, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[token]; exists {
		return false
	}
	s.users[token] = userID
	return true
}

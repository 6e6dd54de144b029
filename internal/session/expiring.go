package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/thejerf/abtime"
)

// ErrRestoreUnsupported is returned by ExpiringStore.Restore when the wrapped
// store does not implement Restorer.
var ErrRestoreUnsupported = errors.New("session: wrapped store cannot restore sessions")

// ExpiringStore gives every session a fixed lifetime measured from creation.
//
// A session created at t with duration d is visible on [t, t+d). Expired
// sessions are hidden from Lookup but stay in the wrapped store until they are
// destroyed or swept. A zero duration disables expiry.
type ExpiringStore struct {
	inner    Store
	clock    abtime.AbstractTime
	created  map[string]time.Time
	duration time.Duration
	mu       sync.RWMutex
}

// ExpiringOption configures an ExpiringStore.
type ExpiringOption func(*ExpiringStore)

// WithClock sets the time source. Tests pass an abtime.ManualTime.
func WithClock(clock abtime.AbstractTime) ExpiringOption {
	return func(s *ExpiringStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewExpiringStore wraps inner. Negative durations are treated as zero.
func NewExpiringStore(inner Store, duration time.Duration, opts ...ExpiringOption) *ExpiringStore {
	if duration < 0 {
		duration = 0
	}
	s := &ExpiringStore{
		inner:    inner,
		clock:    abtime.NewRealTime(),
		created:  make(map[string]time.Time),
		duration: duration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Duration returns the configured lifetime; zero means unbounded.
func (s *ExpiringStore) Duration() time.Duration {
	return s.duration
}

// Create delegates to the wrapped store and stamps the creation time.
func (s *ExpiringStore) Create(ctx context.Context, userID string) (string, error) {
	token, err := s.inner.Create(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.created[token] = now
	s.mu.Unlock()

	return token, nil
}

// Lookup returns the user id while the session is within its lifetime.
func (s *ExpiringStore) Lookup(ctx context.Context, token string) mo.Option[string] {
	userID, ok := s.inner.Lookup(ctx, token).Get()
	if !ok {
		return mo.None[string]()
	}
	if s.duration == 0 {
		return mo.Some(userID)
	}

	createdAt, ok := s.createdAt(token)
	if !ok || s.expired(createdAt) {
		return mo.None[string]()
	}
	return mo.Some(userID)
}

// Destroy delegates to the wrapped store and forgets the creation time.
func (s *ExpiringStore) Destroy(ctx context.Context, token string) (bool, error) {
	removed, err := s.inner.Destroy(ctx, token)

	s.mu.Lock()
	delete(s.created, token)
	s.mu.Unlock()

	return removed, err
}

// Record returns a copy of the session regardless of expiry.
func (s *ExpiringStore) Record(ctx context.Context, token string) mo.Option[Record] {
	createdAt, ok := s.createdAt(token)
	if !ok {
		return mo.None[Record]()
	}
	userID, ok := s.inner.Lookup(ctx, token).Get()
	if !ok {
		return mo.None[Record]()
	}
	return mo.Some(Record{Token: token, UserID: userID, CreatedAt: createdAt})
}

// Restore re-inserts rec with its original creation time. The insert and
// the timestamp become visible together; a concurrent Lookup that sees the
// inner entry waits for the timestamp.
func (s *ExpiringStore) Restore(ctx context.Context, rec Record) error {
	restorer, ok := s.inner.(Restorer)
	if !ok {
		return ErrRestoreUnsupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := restorer.Restore(ctx, rec.Token, rec.UserID); err != nil {
		return err
	}
	s.created[rec.Token] = rec.CreatedAt
	return nil
}

// Sweep destroys every expired session and returns how many were removed.
// Lookup results are unaffected; expired sessions are already hidden.
func (s *ExpiringStore) Sweep(ctx context.Context) int {
	removed := 0
	for _, token := range s.expiredTokens() {
		ok, err := s.Destroy(ctx, token)
		if err != nil {
			logger().Debug().Err(err).Str("token", Redact(token)).Msg("sweep failed to destroy session")
			continue
		}
		if ok {
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is canceled.
// A non-positive interval or a zero duration disables the sweeper.
func (s *ExpiringStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.duration == 0 {
		return
	}
	runSweeper(ctx, interval, s.Sweep)
}

// Expired reports whether a session created at createdAt is past its
// lifetime. It is always false when expiry is disabled.
func (s *ExpiringStore) Expired(createdAt time.Time) bool {
	return s.duration != 0 && s.expired(createdAt)
}

func (s *ExpiringStore) expiredTokens() []string {
	if s.duration == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var expired []string
	for token, createdAt := range s.created {
		if s.expired(createdAt) {
			expired = append(expired, token)
		}
	}
	return expired
}

func runSweeper(ctx context.Context, interval time.Duration, sweep func(context.Context) int) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sweep(ctx); n > 0 {
					logger().Debug().Int("removed", n).Msg("swept expired sessions")
				}
			}
		}
	}()
}

// Len reports the wrapped store's size when it can count.
func (s *ExpiringStore) Len() int {
	if c, ok := s.inner.(Counter); ok {
		return c.Len()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.created)
}

func (s *ExpiringStore) createdAt(token string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.created[token]
	return t, ok
}

func (s *ExpiringStore) expired(createdAt time.Time) bool {
	return !s.clock.Now().Before(createdAt.Add(s.duration))
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// PersistentStore mirrors an ExpiringStore into a Repository so sessions
// survive a restart.
//
// The repository decides whether a session exists; the ExpiringStore decides
// whether it is still valid. Repository calls never run under the in-memory
// locks.
type PersistentStore struct {
	inner *ExpiringStore
	repo  Repository
}

// NewPersistentStore wraps inner with repo.
func NewPersistentStore(inner *ExpiringStore, repo Repository) *PersistentStore {
	return &PersistentStore{inner: inner, repo: repo}
}

// Create starts a session and saves it. When the save fails the in-memory
// session is destroyed and ErrPersistenceFailure is returned.
func (p *PersistentStore) Create(ctx context.Context, userID string) (string, error) {
	token, err := p.inner.Create(ctx, userID)
	if err != nil {
		return "", err
	}

	rec, ok := p.inner.Record(ctx, token).Get()
	if !ok {
		return "", fmt.Errorf("%w: session %s vanished before save", ErrPersistenceFailure, Redact(token))
	}

	if err := p.repo.Save(ctx, rec); err != nil {
		if _, rbErr := p.inner.Destroy(ctx, token); rbErr != nil {
			logger().Error().Err(rbErr).Str("token", Redact(token)).Msg("failed to roll back unsaved session")
		}
		logger().Warn().Err(err).Str("user_id", userID).Msg("session save failed")
		return "", fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	return token, nil
}

// Lookup confirms the session in the repository, then lets the ExpiringStore
// judge it. Repository errors are logged and reported as none.
func (p *PersistentStore) Lookup(ctx context.Context, token string) mo.Option[string] {
	if token == "" {
		return mo.None[string]()
	}

	found, err := p.repo.FindByToken(ctx, token)
	if err != nil {
		logger().Warn().Err(err).Str("token", Redact(token)).Msg("session repository lookup failed")
		return mo.None[string]()
	}
	rec, ok := found.Get()
	if !ok {
		return mo.None[string]()
	}

	if p.inner.Record(ctx, token).IsAbsent() {
		p.restore(ctx, rec)
	}
	return p.inner.Lookup(ctx, token)
}

// Destroy deletes the session from the repository first, then from memory.
// Only the repository result is reported.
func (p *PersistentStore) Destroy(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	removed, err := p.repo.DeleteByToken(ctx, token)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	if _, err := p.inner.Destroy(ctx, token); err != nil {
		logger().Debug().Err(err).Str("token", Redact(token)).Msg("in-memory purge failed")
	}
	return removed, nil
}

// Hydrate loads every repository record into memory. Repositories that
// cannot list their records are skipped and sessions load lazily on lookup.
func (p *PersistentStore) Hydrate(ctx context.Context) (int, error) {
	lister, ok := p.repo.(Lister)
	if !ok {
		return 0, nil
	}

	records, err := lister.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: hydrate: %w", ErrPersistenceFailure, err)
	}

	loaded := 0
	for _, rec := range records {
		if p.restore(ctx, rec) {
			loaded++
		}
	}
	logger().Info().Int("sessions", loaded).Msg("hydrated sessions from repository")
	return loaded, nil
}

// Sweep deletes expired sessions from the repository and then from memory.
// When the repository is a Lister, expired records that were never loaded
// into this process are deleted too. It returns how many records were
// removed from the repository.
func (p *PersistentStore) Sweep(ctx context.Context) int {
	removed := 0
	swept := make(map[string]struct{})
	for _, token := range p.inner.expiredTokens() {
		swept[token] = struct{}{}
		ok, err := p.Destroy(ctx, token)
		if err != nil {
			logger().Debug().Err(err).Str("token", Redact(token)).Msg("sweep failed to destroy session")
			continue
		}
		if ok {
			removed++
		}
	}

	lister, ok := p.repo.(Lister)
	if !ok || p.inner.Duration() == 0 {
		return removed
	}
	records, err := lister.All(ctx)
	if err != nil {
		logger().Debug().Err(err).Msg("sweep could not list stored sessions")
		return removed
	}
	for _, rec := range records {
		if _, done := swept[rec.Token]; done || !p.inner.Expired(rec.CreatedAt) {
			continue
		}
		ok, err := p.repo.DeleteByToken(ctx, rec.Token)
		if err != nil {
			logger().Debug().Err(err).Str("token", Redact(rec.Token)).Msg("sweep failed to delete stored session")
			continue
		}
		if ok {
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is canceled.
// A non-positive interval or a zero lifetime disables the sweeper.
func (p *PersistentStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if p.inner.Duration() == 0 {
		return
	}
	runSweeper(ctx, interval, p.Sweep)
}

// Len reports the number of sessions held in memory.
func (p *PersistentStore) Len() int {
	return p.inner.Len()
}

func (p *PersistentStore) restore(ctx context.Context, rec Record) bool {
	err := p.inner.Restore(ctx, rec)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrTokenCollision):
		// Another request restored it first.
		return false
	default:
		logger().Warn().Err(err).Str("token", Redact(rec.Token)).Msg("failed to restore session")
		return false
	}
}

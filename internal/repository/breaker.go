package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/health"
	"github.com/omarluq/authgate/internal/session"
)

// Guarded runs every call to a Repository through a circuit breaker. While
// the circuit is open calls fail fast with health.ErrCircuitOpen.
type Guarded struct {
	inner   Repository
	breaker *health.CircuitBreaker
}

var (
	_ Repository     = (*Guarded)(nil)
	_ session.Lister = (*Guarded)(nil)
)

// NewGuarded wraps inner with breaker.
func NewGuarded(inner Repository, breaker *health.CircuitBreaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

// IsBackendFailure reports whether err should count against the backend.
// Corrupt records and cancelled requests are not the backend's fault.
func IsBackendFailure(err error) bool {
	return !errors.Is(err, ErrCorruptRecord) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, ErrInvalidTable)
}

// Breaker returns the wrapped circuit breaker.
func (g *Guarded) Breaker() *health.CircuitBreaker { return g.breaker }

// Save implements session.Repository.
func (g *Guarded) Save(ctx context.Context, rec session.Record) error {
	return g.call(func() error { return g.inner.Save(ctx, rec) })
}

// FindByToken implements session.Repository.
func (g *Guarded) FindByToken(ctx context.Context, token string) (mo.Option[session.Record], error) {
	var found mo.Option[session.Record]
	err := g.call(func() error {
		var err error
		found, err = g.inner.FindByToken(ctx, token)
		return err
	})
	if err != nil {
		return mo.None[session.Record](), err
	}
	return found, nil
}

// DeleteByToken implements session.Repository.
func (g *Guarded) DeleteByToken(ctx context.Context, token string) (bool, error) {
	var deleted bool
	err := g.call(func() error {
		var err error
		deleted, err = g.inner.DeleteByToken(ctx, token)
		return err
	})
	return deleted && err == nil, err
}

// All passes through to the inner repository when it can list.
func (g *Guarded) All(ctx context.Context) ([]session.Record, error) {
	lister, ok := g.inner.(session.Lister)
	if !ok {
		return nil, nil
	}
	var records []session.Record
	err := g.call(func() error {
		var err error
		records, err = lister.All(ctx)
		return err
	})
	return records, err
}

// Ping bypasses the breaker so health checks can observe recovery.
func (g *Guarded) Ping(ctx context.Context) error {
	if p, ok := g.inner.(health.Probe); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the inner repository.
func (g *Guarded) Close() error { return g.inner.Close() }

func (g *Guarded) call(fn func() error) error {
	done, err := g.breaker.Allow()
	if err != nil {
		return fmt.Errorf("%s: %w", g.breaker.Name(), err)
	}
	err = fn()
	done(err)
	return err
}

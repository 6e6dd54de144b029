package auth

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ChainStrategy tries several strategies in order. The first identity wins.
// Sessions are created by the first strategy that supports them.
type ChainStrategy struct {
	guard      *PathGuard
	strategies []Strategy
}

// NewChainStrategy creates a chain. The chain's guard decides protection;
// member strategies are only asked for identities and sessions.
func NewChainStrategy(guard *PathGuard, strategies ...Strategy) *ChainStrategy {
	return &ChainStrategy{guard: guard, strategies: strategies}
}

// Type returns TypeChain.
func (c *ChainStrategy) Type() Type { return TypeChain }

// IsProtected consults the chain's guard.
func (c *ChainStrategy) IsProtected(path string) bool {
	return c.guard.IsProtected(path)
}

// HasCredential reports whether any member sees a credential.
func (c *ChainStrategy) HasCredential(req Request) bool {
	return lo.SomeBy(c.strategies, func(s Strategy) bool {
		return hasCredential(s, req)
	})
}

// ExtractIdentity returns the first identity any member resolves.
func (c *ChainStrategy) ExtractIdentity(ctx context.Context, req Request) mo.Option[Identity] {
	return lo.Reduce(c.strategies, func(acc mo.Option[Identity], s Strategy, _ int) mo.Option[Identity] {
		if acc.IsPresent() {
			return acc
		}
		return s.ExtractIdentity(ctx, req)
	}, mo.None[Identity]())
}

// CreateSession uses the first member that supports sessions.
func (c *ChainStrategy) CreateSession(ctx context.Context, userID string) (string, error) {
	for _, s := range c.strategies {
		token, err := s.CreateSession(ctx, userID)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		return token, err
	}
	return "", ErrUnsupported
}

// EndSession asks every member and reports whether any ended a session.
func (c *ChainStrategy) EndSession(ctx context.Context, req Request) (bool, error) {
	var (
		ended bool
		errs  []error
	)
	for _, s := range c.strategies {
		ok, err := s.EndSession(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ended = ended || ok
	}
	return ended, errors.Join(errs...)
}

// SessionCookie returns the cookie name of the first session member.
func (c *ChainStrategy) SessionCookie() mo.Option[string] {
	for _, s := range c.strategies {
		if ss, ok := s.(*SessionStrategy); ok {
			return mo.Some(ss.CookieName())
		}
	}
	return mo.None[string]()
}

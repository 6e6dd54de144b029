package auth

import (
	"context"

	"github.com/samber/mo"
)

// NullStrategy protects every path and never resolves an identity.
// It is the strategy used when authentication is switched off.
type NullStrategy struct{}

// NewNullStrategy returns the deny-all strategy.
func NewNullStrategy() NullStrategy { return NullStrategy{} }

// Type returns TypeNone.
func (NullStrategy) Type() Type { return TypeNone }

// IsProtected always returns true.
func (NullStrategy) IsProtected(string) bool { return true }

// HasCredential reports whether an Authorization header is present.
func (NullStrategy) HasCredential(req Request) bool {
	return req.Header(AuthorizationHeader).IsPresent()
}

// ExtractIdentity always returns none.
func (NullStrategy) ExtractIdentity(context.Context, Request) mo.Option[Identity] {
	return mo.None[Identity]()
}

// CreateSession always fails with ErrUnsupported.
func (NullStrategy) CreateSession(context.Context, string) (string, error) {
	return "", ErrUnsupported
}

// EndSession never ends anything.
func (NullStrategy) EndSession(context.Context, Request) (bool, error) {
	return false, nil
}

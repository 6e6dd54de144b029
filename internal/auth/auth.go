// Package auth decides whether a request needs authentication and, if so,
// who is making it.
//
// A Strategy is selected once from configuration and shared by every request:
//   - NullStrategy denies everything
//   - BasicStrategy checks an Authorization: Basic header against a Directory
//   - SessionStrategy resolves a session cookie through a session.Store
//
// Strategies never write HTTP responses. Callers use Decide to turn a strategy
// result into allow, 401 or 403.
package auth

import (
	"context"
	"errors"

	"github.com/samber/mo"
)

// Type names a strategy in configuration.
type Type string

const (
	// TypeNone denies every protected request.
	TypeNone Type = "none"
	// TypeBasic authenticates with HTTP Basic credentials.
	TypeBasic Type = "basic_auth"
	// TypeSession authenticates with an in-memory session cookie.
	TypeSession Type = "session_auth"
	// TypeSessionExp adds a session lifetime.
	TypeSessionExp Type = "session_exp_auth"
	// TypeSessionDB adds durable session storage.
	TypeSessionDB Type = "session_db_auth"
	// TypeChain tries several strategies in order.
	TypeChain Type = "chain"
)

// IsSession reports whether t is backed by a session store.
func (t Type) IsSession() bool {
	return t == TypeSession || t == TypeSessionExp || t == TypeSessionDB
}

// ErrUnsupported is returned when a strategy has no session support.
var ErrUnsupported = errors.New("auth: operation not supported by strategy")

// Identity is a user resolved by a Directory.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Request is the read-only view of an incoming request that strategies need.
type Request interface {
	Path() string
	Header(name string) mo.Option[string]
	Cookie(name string) mo.Option[string]
}

// Directory resolves users. Password verification lives behind it.
type Directory interface {
	FindByCredentials(ctx context.Context, identifier, secret string) mo.Option[Identity]
	FindByID(ctx context.Context, id string) mo.Option[Identity]
}

// Strategy is the capability set request handling calls into.
// Implementations are safe for concurrent use.
type Strategy interface {
	// Type returns the configured strategy name.
	Type() Type

	// IsProtected reports whether path requires authentication.
	IsProtected(path string) bool

	// ExtractIdentity resolves the caller, or none when no valid credential
	// was presented. Decoding and lookup failures are never surfaced.
	ExtractIdentity(ctx context.Context, req Request) mo.Option[Identity]

	// CreateSession starts a session for userID and returns its token.
	CreateSession(ctx context.Context, userID string) (string, error)

	// EndSession destroys the session carried by req and reports whether one
	// was ended.
	EndSession(ctx context.Context, req Request) (bool, error)
}

// CredentialDetector is implemented by strategies that can tell whether a
// request carries any credential at all, valid or not.
type CredentialDetector interface {
	HasCredential(req Request) bool
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) mo.Option[Identity] {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return mo.TupleToOption(id, ok)
}

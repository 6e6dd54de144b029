package auth

import (
	"context"

	"github.com/samber/mo"
)

// Outcome is what the HTTP layer should do with a request.
type Outcome int

const (
	// Allow lets the request through.
	Allow Outcome = iota
	// Unauthorized means no credential was presented (401).
	Unauthorized
	// Forbidden means a credential was presented but resolved to nobody (403).
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decide runs strategy against req. The identity is present only when the
// outcome is Allow on a protected path.
func Decide(ctx context.Context, strategy Strategy, req Request) (Outcome, mo.Option[Identity]) {
	if !strategy.IsProtected(req.Path()) {
		return Allow, mo.None[Identity]()
	}
	if !hasCredential(strategy, req) {
		return Unauthorized, mo.None[Identity]()
	}

	identity := strategy.ExtractIdentity(ctx, req)
	if identity.IsAbsent() {
		return Forbidden, identity
	}
	return Allow, identity
}

func hasCredential(strategy Strategy, req Request) bool {
	if d, ok := strategy.(CredentialDetector); ok {
		return d.HasCredential(req)
	}
	return req.Header(AuthorizationHeader).IsPresent()
}

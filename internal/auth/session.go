package auth

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/session"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "_my_session_id"

// SessionStrategy authenticates with a session token carried in a cookie.
// The same type serves plain, expiring and durable sessions; only the store
// behind it differs.
type SessionStrategy struct {
	guard      *PathGuard
	store      session.Store
	directory  Directory
	cookieName string
	kind       Type
}

// NewSessionStrategy creates a session strategy of the given kind.
func NewSessionStrategy(kind Type, guard *PathGuard, store session.Store, directory Directory, cookieName string) *SessionStrategy {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SessionStrategy{
		guard:      guard,
		store:      store,
		directory:  directory,
		cookieName: cookieName,
		kind:       kind,
	}
}

// Type returns the configured session kind.
func (s *SessionStrategy) Type() Type { return s.kind }

// CookieName returns the cookie carrying the session token.
func (s *SessionStrategy) CookieName() string { return s.cookieName }

// Store returns the backing session store.
func (s *SessionStrategy) Store() session.Store { return s.store }

// IsProtected consults the path guard.
func (s *SessionStrategy) IsProtected(path string) bool {
	return s.guard.IsProtected(path)
}

// HasCredential reports whether the session cookie is present.
func (s *SessionStrategy) HasCredential(req Request) bool {
	return s.token(req).IsPresent()
}

// ExtractIdentity resolves the cookie token to a user through the store and
// the directory.
func (s *SessionStrategy) ExtractIdentity(ctx context.Context, req Request) mo.Option[Identity] {
	token, ok := s.token(req).Get()
	if !ok {
		return mo.None[Identity]()
	}

	userID, ok := s.store.Lookup(ctx, token).Get()
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("token", session.Redact(token)).Msg("session not found")
		return mo.None[Identity]()
	}
	return s.directory.FindByID(ctx, userID)
}

// CreateSession starts a session for userID.
func (s *SessionStrategy) CreateSession(ctx context.Context, userID string) (string, error) {
	return s.store.Create(ctx, userID)
}

// EndSession destroys the session named by the request cookie.
func (s *SessionStrategy) EndSession(ctx context.Context, req Request) (bool, error) {
	token, ok := s.token(req).Get()
	if !ok {
		return false, nil
	}
	return s.store.Destroy(ctx, token)
}

func (s *SessionStrategy) token(req Request) mo.Option[string] {
	v, ok := req.Cookie(s.cookieName).Get()
	if !ok || v == "" {
		return mo.None[string]()
	}
	return mo.Some(v)
}

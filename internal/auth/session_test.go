package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/session"
)

func newSessionStrategy(store session.Store) *auth.SessionStrategy {
	return auth.NewSessionStrategy(auth.TypeSession, auth.NewPathGuard(defaultExemptions), store, newFakeDirectory(), "")
}

func TestSessionStrategy_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	strategy := newSessionStrategy(session.NewMemoryStore())
	assert.Equal(t, auth.DefaultCookieName, strategy.CookieName())

	token, err := strategy.CreateSession(ctx, "u-alice")
	require.NoError(t, err)

	req := auth.FromHTTP(withCookie(newRequest("/api/v1/users/me"), auth.DefaultCookieName, token))
	assert.True(t, strategy.HasCredential(req))
	got, ok := strategy.ExtractIdentity(ctx, req).Get()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", got.Email)

	ended, err := strategy.EndSession(ctx, req)
	require.NoError(t, err)
	assert.True(t, ended)
	assert.True(t, strategy.ExtractIdentity(ctx, req).IsAbsent())

	ended, err = strategy.EndSession(ctx, req)
	require.NoError(t, err)
	assert.False(t, ended)
}

func TestSessionStrategy_NoIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore()
	strategy := newSessionStrategy(store)

	orphan, err := store.Create(ctx, "deleted-user")
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
	}{
		{name: "no cookie"},
		{name: "unknown token", cookie: "nope"},
		{name: "user missing from directory", cookie: orphan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRequest("/api/v1/users/me")
			if tt.cookie != "" {
				r = withCookie(r, auth.DefaultCookieName, tt.cookie)
			}
			assert.True(t, strategy.ExtractIdentity(ctx, auth.FromHTTP(r)).IsAbsent())
		})
	}
}

func TestSessionStrategy_EndSessionWithoutCookie(t *testing.T) {
	t.Parallel()

	strategy := newSessionStrategy(session.NewMemoryStore())
	ended, err := strategy.EndSession(context.Background(), auth.FromHTTP(newRequest("/")))
	require.NoError(t, err)
	assert.False(t, ended)
}

func TestSessionStrategy_CustomCookie(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	strategy := auth.NewSessionStrategy(auth.TypeSession, nil, session.NewMemoryStore(), newFakeDirectory(), "sid")
	token, err := strategy.CreateSession(ctx, "u-bob")
	require.NoError(t, err)

	wrong := auth.FromHTTP(withCookie(newRequest("/"), auth.DefaultCookieName, token))
	assert.False(t, strategy.HasCredential(wrong))
	assert.True(t, strategy.ExtractIdentity(ctx, wrong).IsAbsent())

	right := auth.FromHTTP(withCookie(newRequest("/"), "sid", token))
	assert.Equal(t, "u-bob", strategy.ExtractIdentity(ctx, right).MustGet().ID)
}

func TestSessionStrategy_ExpiringStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := abtime.NewManualAtTime(time.Unix(0, 0))
	store := session.NewExpiringStore(session.NewMemoryStore(), time.Minute, session.WithClock(clock))
	strategy := auth.NewSessionStrategy(auth.TypeSessionExp, nil, store, newFakeDirectory(), "")

	token, err := strategy.CreateSession(ctx, "u-alice")
	require.NoError(t, err)
	req := auth.FromHTTP(withCookie(newRequest("/"), auth.DefaultCookieName, token))

	assert.True(t, strategy.ExtractIdentity(ctx, req).IsPresent())
	clock.Advance(time.Minute)
	assert.True(t, strategy.ExtractIdentity(ctx, req).IsAbsent())
	assert.Equal(t, auth.TypeSessionExp, strategy.Type())
}

func TestSessionStrategy_CreateSessionRejectsEmptyUser(t *testing.T) {
	t.Parallel()

	strategy := newSessionStrategy(session.NewMemoryStore())
	_, err := strategy.CreateSession(context.Background(), "")
	require.ErrorIs(t, err, session.ErrInvalidUserID)
}

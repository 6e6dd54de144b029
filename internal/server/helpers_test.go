package server_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/config"
	"github.com/omarluq/authgate/internal/ratelimit"
	"github.com/omarluq/authgate/internal/server"
	"github.com/omarluq/authgate/internal/session"
	"github.com/omarluq/authgate/internal/users"
)

const (
	bobEmail    = "bob@hbtn.io"
	bobPassword = "H0lbertonSchool98!"
	bobID       = "user-bob"
)

type fixture struct {
	handler http.Handler
	store   *session.MemoryStore
	dir     *users.MemoryDirectory
}

type fixtureOption func(*server.Options)

func newDirectory(t *testing.T) *users.MemoryDirectory {
	t.Helper()
	hash, err := users.HashPassword(bobPassword, bcrypt.MinCost)
	require.NoError(t, err)
	dir, err := users.NewMemoryDirectory(users.User{ID: bobID, Email: bobEmail, PasswordHash: hash})
	require.NoError(t, err)
	return dir
}

func newFixture(t *testing.T, kind auth.Type, opts ...fixtureOption) *fixture {
	t.Helper()

	dir := newDirectory(t)
	store := session.NewMemoryStore()
	strategy, err := auth.New(auth.Options{
		Type:       kind,
		Guard:      auth.NewPathGuard(config.DefaultExemptPaths),
		Directory:  dir,
		Store:      store,
		CookieName: auth.DefaultCookieName,
	})
	require.NoError(t, err)

	o := server.Options{
		Strategy:   strategy,
		Users:      dir,
		Sessions:   store,
		Runtime:    config.NewRuntime(config.Default()),
		Logger:     zerolog.Nop(),
		CookieName: auth.DefaultCookieName,
	}
	for _, opt := range opts {
		opt(&o)
	}

	handler, err := server.NewHandler(o)
	require.NoError(t, err)
	return &fixture{handler: handler, store: store, dir: dir}
}

func withLimiter(l *ratelimit.KeyedLimiter) fixtureOption {
	return func(o *server.Options) { o.Limiter = l }
}

func withSessionTTL(d time.Duration) fixtureOption {
	return func(o *server.Options) { o.SessionTTL = d }
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func loginRequest(email, password string) *http.Request {
	form := url.Values{}
	if email != "" {
		form.Set("email", email)
	}
	if password != "" {
		form.Set("password", password)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth_session/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultCookieName {
			return c
		}
	}
	return nil
}

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/auth"
)

type fakeUser struct {
	identity auth.Identity
	password string
}

// fakeDirectory resolves users from a fixed table keyed by email.
type fakeDirectory struct {
	users map[string]fakeUser
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]fakeUser{
		"alice@example.com": {identity: auth.Identity{ID: "u-alice", Email: "alice@example.com"}, password: "s3cr3t"},
		"bob@example.com":   {identity: auth.Identity{ID: "u-bob", Email: "bob@example.com"}, password: "pa:ss"},
	}}
}

func (d *fakeDirectory) FindByCredentials(_ context.Context, identifier, secret string) mo.Option[auth.Identity] {
	u, ok := d.users[identifier]
	if !ok || u.password != secret {
		return mo.None[auth.Identity]()
	}
	return mo.Some(u.identity)
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) mo.Option[auth.Identity] {
	for _, u := range d.users {
		if u.identity.ID == id {
			return mo.Some(u.identity)
		}
	}
	return mo.None[auth.Identity]()
}

func newRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, http.NoBody)
}

func withBasic(r *http.Request, user, pass string) *http.Request {
	r.Header.Set(auth.AuthorizationHeader, auth.EncodeBasic(user, pass))
	return r
}

func withCookie(r *http.Request, name, value string) *http.Request {
	r.AddCookie(&http.Cookie{Name: name, Value: value})
	return r
}

var defaultExemptions = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
}

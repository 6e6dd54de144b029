// Package users is the user directory behind authgate's strategies.
// Passwords are stored as bcrypt hashes and never leave this package.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarluq/authgate/internal/auth"
)

// Errors returned when building a directory.
var (
	ErrDuplicateEmail = errors.New("users: duplicate email")
	ErrDuplicateID    = errors.New("users: duplicate id")
	ErrInvalidUser    = errors.New("users: email and password hash are required")
)

// User is a directory entry.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

func (u User) identity() auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email}
}

// MemoryDirectory keeps users in memory, indexed by email and id.
type MemoryDirectory struct {
	byEmail map[string]User
	byID    map[string]User
	mu      sync.RWMutex
}

// NewMemoryDirectory creates a directory holding users.
// Users without an ID get one derived from their email, so it is the
// same on every start.
func NewMemoryDirectory(users ...User) (*MemoryDirectory, error) {
	d := &MemoryDirectory{
		byEmail: make(map[string]User, len(users)),
		byID:    make(map[string]User, len(users)),
	}
	for _, u := range users {
		if err := d.Add(u); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add inserts u. Emails are matched case-insensitively.
func (d *MemoryDirectory) Add(u User) error {
	if u.Email == "" || u.PasswordHash == "" {
		return ErrInvalidUser
	}
	key := normalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = StableID(key)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
	}
	if _, ok := d.byID[u.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, u.ID)
	}
	d.byEmail[key] = u
	d.byID[u.ID] = u
	return nil
}

// FindByCredentials returns the user with this email when secret matches
// the stored hash. Unknown emails still pay for one bcrypt comparison.
func (d *MemoryDirectory) FindByCredentials(_ context.Context, identifier, secret string) mo.Option[auth.Identity] {
	d.mu.RLock()
	u, ok := d.byEmail[normalizeEmail(identifier)]
	d.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(decoyHash(), []byte(secret))
		return mo.None[auth.Identity]()
	}
	if !VerifyPassword(u.PasswordHash, secret) {
		return mo.None[auth.Identity]()
	}
	return mo.Some(u.identity())
}

// FindByID returns the user with this id.
func (d *MemoryDirectory) FindByID(_ context.Context, id string) mo.Option[auth.Identity] {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return mo.None[auth.Identity]()
	}
	return mo.Some(u.identity())
}

// FindByEmail returns the user with this email without checking a password.
func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) mo.Option[auth.Identity] {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return mo.None[auth.Identity]()
	}
	return mo.Some(u.identity())
}

// Len returns the number of users.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// StableID is the id given to a user configured without one.
func StableID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalizeEmail(email))).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

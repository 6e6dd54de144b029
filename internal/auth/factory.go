package auth

import (
	"errors"
	"fmt"

	"github.com/omarluq/authgate/internal/session"
)

// Errors returned by New.
var (
	ErrUnknownType      = errors.New("auth: unknown strategy type")
	ErrMissingStore     = errors.New("auth: session strategy requires a session store")
	ErrMissingDirectory = errors.New("auth: strategy requires a user directory")
)

// Options carries everything New may need. Fields a type does not use are ignored.
type Options struct {
	Guard      *PathGuard
	Directory  Directory
	Store      session.Store
	CookieName string
	Type       Type
	Chain      []Type
}

// New builds the strategy named by opts.Type.
func New(opts Options) (Strategy, error) {
	if opts.Type != TypeChain {
		return newSingle(opts.Type, opts)
	}

	members := make([]Strategy, 0, len(opts.Chain))
	for _, t := range opts.Chain {
		if t == TypeChain {
			return nil, fmt.Errorf("%w: chains cannot nest", ErrUnknownType)
		}
		s, err := newSingle(t, opts)
		if err != nil {
			return nil, fmt.Errorf("chain member %q: %w", t, err)
		}
		members = append(members, s)
	}
	return NewChainStrategy(opts.Guard, members...), nil
}

func newSingle(t Type, opts Options) (Strategy, error) {
	switch t {
	case TypeNone, "":
		return NewNullStrategy(), nil
	case TypeBasic:
		if opts.Directory == nil {
			return nil, ErrMissingDirectory
		}
		return NewBasicStrategy(opts.Guard, opts.Directory), nil
	case TypeSession, TypeSessionExp, TypeSessionDB:
		if opts.Directory == nil {
			return nil, ErrMissingDirectory
		}
		if opts.Store == nil {
			return nil, ErrMissingStore
		}
		return NewSessionStrategy(t, opts.Guard, opts.Store, opts.Directory, opts.CookieName), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

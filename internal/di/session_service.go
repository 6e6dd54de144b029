package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/session"
)

// SessionService holds the session store matching the configured session
// strategy. Store is nil when no strategy uses sessions.
type SessionService struct {
	Store    session.Store
	Counter  session.Counter
	Lifetime time.Duration
	cancel   context.CancelFunc
}

// NewSessions builds the store stack:
//   - session_auth: in-memory
//   - session_exp_auth: in-memory with expiry
//   - session_db_auth: in-memory with expiry, backed by the repository
func NewSessions(i do.Injector) (*SessionService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cfg := cfgSvc.Get()

	kind, ok := cfg.Auth.SessionType().Get()
	if !ok {
		return &SessionService{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := &SessionService{cancel: cancel}

	memory := session.NewMemoryStore()
	switch kind {
	case auth.TypeSession:
		svc.Store, svc.Counter = memory, memory
		return svc, nil

	case auth.TypeSessionExp, auth.TypeSessionDB:
		svc.Lifetime = cfg.Session.GetDuration()
		expiring := session.NewExpiringStore(memory, svc.Lifetime)
		interval := cfg.Session.GetSweepIntervalOption().OrEmpty()
		if kind == auth.TypeSessionExp {
			expiring.StartSweeper(ctx, interval)
			svc.Store, svc.Counter = expiring, expiring
			return svc, nil
		}

		repoSvc := do.MustInvoke[*RepositoryService](i)
		if repoSvc.Repository == nil {
			cancel()
			return nil, errors.New("session_db_auth requires a session repository")
		}
		persistent := session.NewPersistentStore(expiring, repoSvc.Repository)
		if cfg.Session.HydrateOnStart {
			hydrateCtx, done := context.WithTimeout(ctx, 30*time.Second)
			_, err := persistent.Hydrate(hydrateCtx)
			done()
			if err != nil {
				cancel()
				return nil, fmt.Errorf("failed to hydrate sessions: %w", err)
			}
		}
		persistent.StartSweeper(ctx, interval)
		svc.Store, svc.Counter = persistent, persistent
		return svc, nil
	}

	cancel()
	return nil, fmt.Errorf("unsupported session strategy %q", kind)
}

// Shutdown implements do.Shutdowner, stopping the expiry sweeper.
func (s *SessionService) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

package di

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/repository"
)

// RepositoryService wraps the durable session repository. Repository is
// nil unless the configured strategy is session_db_auth.
type RepositoryService struct {
	Repository repository.Repository
	Backend    repository.Backend
}

// NewRepository opens the configured backend when sessions are persisted.
func NewRepository(i do.Injector) (*RepositoryService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	cfg := cfgSvc.Get()

	svc := &RepositoryService{Backend: cfg.Session.Repository.Backend}
	if t, ok := cfg.Auth.SessionType().Get(); !ok || t != auth.TypeSessionDB {
		return svc, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.Open(ctx, &cfg.Session.Repository, cfg.Session.GetDuration(), loggerSvc.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session repository: %w", err)
	}
	svc.Repository = repo
	return svc, nil
}

// Guarded returns the breaker-wrapped repository, if that is what was opened.
func (r *RepositoryService) Guarded() (*repository.Guarded, bool) {
	g, ok := r.Repository.(*repository.Guarded)
	return g, ok
}

// Shutdown implements do.Shutdowner for graceful repository cleanup.
func (r *RepositoryService) Shutdown() error {
	if r.Repository != nil {
		return r.Repository.Close()
	}
	return nil
}

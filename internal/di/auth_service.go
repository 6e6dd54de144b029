package di

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"github.com/samber/lo"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/config"
	"github.com/omarluq/authgate/internal/users"
)

// UsersService wraps the built-in user directory.
type UsersService struct {
	Directory *users.MemoryDirectory
}

// NewUsers loads the accounts listed in the config. Changes to the user
// list take effect on restart.
func NewUsers(i do.Injector) (*UsersService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	accounts := lo.Map(cfgSvc.Get().Users, func(u config.UserConfig, _ int) users.User {
		return users.User{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash}
	})
	dir, err := users.NewMemoryDirectory(accounts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return &UsersService{Directory: dir}, nil
}

// AuthService holds the active strategy and the path guard it consults.
type AuthService struct {
	Strategy auth.Strategy
	Guard    *auth.PathGuard
}

// NewAuth builds the configured strategy. Exempt paths follow config
// reloads; the strategy type itself requires a restart.
func NewAuth(i do.Injector) (*AuthService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	sessionSvc := do.MustInvoke[*SessionService](i)
	usersSvc := do.MustInvoke[*UsersService](i)
	cfg := cfgSvc.Get()

	guard := auth.NewPathGuard(cfg.Auth.GetExemptPaths())
	strategy, err := auth.New(auth.Options{
		Type:       cfg.Auth.GetType(),
		Chain:      cfg.Auth.GetChain(),
		Guard:      guard,
		Directory:  usersSvc.Directory,
		Store:      sessionSvc.Store,
		CookieName: cfg.Auth.GetSessionName(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build auth strategy: %w", err)
	}

	cfgSvc.onReload(func(newCfg *config.Config) error {
		paths := newCfg.Auth.GetExemptPaths()
		guard.Set(paths)
		log.Info().Strs("exempt_paths", paths).Msg("exempt paths updated via hot-reload")
		if newCfg.Auth.GetType() != strategy.Type() {
			log.Warn().
				Str("running", string(strategy.Type())).
				Str("configured", string(newCfg.Auth.GetType())).
				Msg("auth type change requires a restart")
		}
		return nil
	})

	log.Info().Str("auth_type", string(strategy.Type())).Msg("authentication strategy ready")
	return &AuthService{Strategy: strategy, Guard: guard}, nil
}

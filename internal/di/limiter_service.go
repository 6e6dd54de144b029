package di

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/config"
	"github.com/omarluq/authgate/internal/ratelimit"
)

// LimiterService wraps the per-client login limiter for DI.
type LimiterService struct {
	Limiter *ratelimit.KeyedLimiter
	cancel  context.CancelFunc
}

// NewLimiter creates the login limiter and its idle-bucket janitor. The
// limit follows config reloads.
func NewLimiter(i do.Injector) (*LimiterService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	rate := cfgSvc.Get().Auth.LoginRate

	limiter := ratelimit.NewKeyedLimiter(rate.GetRequestsPerMinute(), rate.GetBurst())
	ctx, cancel := context.WithCancel(context.Background())
	limiter.StartJanitor(ctx, time.Minute)

	svc := &LimiterService{Limiter: limiter, cancel: cancel}
	cfgSvc.onReload(func(newCfg *config.Config) error {
		rpm, burst := newCfg.Auth.LoginRate.GetRequestsPerMinute(), newCfg.Auth.LoginRate.GetBurst()
		old := limiter.GetUsage()
		if old.RequestsPerMinute != rpm || old.Burst != burst {
			limiter.SetLimit(rpm, burst)
			log.Info().
				Int("old_rpm", old.RequestsPerMinute).
				Int("new_rpm", rpm).
				Int("burst", burst).
				Msg("login rate limit updated via hot-reload")
		}
		return nil
	})

	return svc, nil
}

// Shutdown implements do.Shutdowner, stopping the janitor.
func (s *LimiterService) Shutdown() error {
	s.cancel()
	return nil
}

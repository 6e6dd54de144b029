package di

import (
	"sync"

	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/health"
	"github.com/omarluq/authgate/internal/server"
)

// CheckerService wraps the repository health checker. Checker is nil when
// no repository is open.
type CheckerService struct {
	Checker   *health.Checker
	started   bool
	startedMu sync.Mutex
}

// NewChecker creates a checker that pings the session repository. When the
// repository is guarded, its breaker is handed to the checker so successful
// pings can close it.
func NewChecker(i do.Injector) (*CheckerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	repoSvc := do.MustInvoke[*RepositoryService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	svc := &CheckerService{}
	if repoSvc.Repository == nil {
		return svc, nil
	}

	probe, _ := repoSvc.Repository.(health.Probe)
	var breaker *health.CircuitBreaker
	if g, ok := repoSvc.Guarded(); ok {
		probe = g
		breaker = g.Breaker()
	}

	svc.Checker = health.NewChecker(
		string(repoSvc.Backend),
		probe,
		breaker,
		cfgSvc.Get().Session.Repository.HealthCheck,
		loggerSvc.Logger,
	)
	return svc, nil
}

// Reporter returns the checker as a server.HealthReporter, or nil.
func (h *CheckerService) Reporter() server.HealthReporter {
	if h.Checker == nil {
		return nil
	}
	return h.Checker
}

// Start starts background pinging.
func (h *CheckerService) Start() {
	h.startedMu.Lock()
	defer h.startedMu.Unlock()
	if h.Checker != nil && !h.started {
		h.Checker.Start()
		h.started = true
	}
}

// Shutdown implements do.Shutdowner for graceful checker cleanup.
func (h *CheckerService) Shutdown() error {
	h.startedMu.Lock()
	defer h.startedMu.Unlock()
	if h.Checker != nil && h.started {
		h.Checker.Stop()
		h.started = false
	}
	return nil
}

package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Probe is anything that can check its own connection.
type Probe interface {
	Ping(ctx context.Context) error
}

// Status is the latest probe result.
type Status struct {
	CheckedAt time.Time `json:"checked_at"`
	Backend   string    `json:"backend"`
	Circuit   string    `json:"circuit,omitempty"`
	Error     string    `json:"error,omitempty"`
	Healthy   bool      `json:"healthy"`
}

// Checker pings a backend periodically and remembers the result.
// While the breaker is half-open, successful pings are fed to it so it can
// close without waiting for live traffic.
type Checker struct {
	probe   Probe
	breaker *CircuitBreaker
	logger  *zerolog.Logger
	cancel  context.CancelFunc
	status  Status
	config  CheckConfig
	timeout time.Duration
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

// NewChecker creates a Checker. probe may be nil, in which case Check
// always reports ErrNoProbe. breaker may be nil.
func NewChecker(backend string, probe Probe, breaker *CircuitBreaker, cfg CheckConfig, logger *zerolog.Logger) *Checker {
	return &Checker{
		probe:   probe,
		breaker: breaker,
		logger:  logger,
		config:  cfg,
		timeout: 5 * time.Second,
		status:  Status{Backend: backend, Healthy: true},
	}
}

// Check pings once and returns the new status.
func (h *Checker) Check(ctx context.Context) Status {
	var err error
	if h.probe == nil {
		err = ErrNoProbe
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err = h.probe.Ping(pingCtx)
		cancel()
	}

	if err == nil && h.breaker != nil && h.breaker.State() == StateHalfOpen {
		h.breaker.ReportSuccess()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.status.CheckedAt = time.Now()
	h.status.Healthy = err == nil
	h.status.Error = ""
	if err != nil {
		h.status.Error = err.Error()
	}
	if h.breaker != nil {
		h.status.Circuit = h.breaker.State().String()
	}
	return h.status
}

// Status returns the latest result without pinging.
func (h *Checker) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.status
	if h.breaker != nil {
		s.Circuit = h.breaker.State().String()
	}
	return s
}

// Start pings every configured interval until Stop is called.
func (h *Checker) Start() {
	if !h.config.IsEnabled() || h.probe == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	interval := h.config.GetInterval()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s := h.Check(ctx); !s.Healthy && h.logger != nil {
					h.logger.Warn().Str("backend", s.Backend).Str("error", s.Error).Msg("session backend unhealthy")
				}
			}
		}
	}()
}

// Stop ends background pinging and waits for it to finish.
func (h *Checker) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

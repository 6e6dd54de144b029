package health

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State is the circuit breaker state.
type State = gobreaker.State

// Circuit breaker states.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker wraps a gobreaker TwoStepCircuitBreaker around one backend.
type CircuitBreaker struct {
	cb   *gobreaker.TwoStepCircuitBreaker[struct{}]
	name string
}

// NewCircuitBreaker creates a breaker named after the backend it guards.
// isFailure decides which errors count against the backend; nil counts every
// error except context cancellation.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, isFailure func(error) bool, logger *zerolog.Logger) *CircuitBreaker {
	threshold := uint32(cfg.GetFailureThreshold()) //nolint:gosec // positive by construction
	if isFailure == nil {
		isFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.GetHalfOpenProbes()), //nolint:gosec // positive by construction
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isFailure(err)
		},
	}

	return &CircuitBreaker{
		cb:   gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		name: name,
	}
}

// Allow asks to make one call. The returned done must be called with the
// call's error.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Name returns the guarded backend's name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// ReportSuccess records a successful probe. It returns false while the
// circuit is open, since gobreaker only leaves OPEN after its timeout.
func (c *CircuitBreaker) ReportSuccess() bool {
	done, err := c.Allow()
	if err != nil {
		return false
	}
	done(nil)
	return true
}

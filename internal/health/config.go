// Package health protects authgate's durable session backends.
//
// A CircuitBreaker stops repository calls from piling up behind a backend
// that keeps failing, and a Checker pings the backend in the background so
// the /health endpoint can report on it.
package health

import "time"

// Default configuration values.
const (
	DefaultFailureThreshold = 5
	DefaultOpenDurationMS   = 30000
	DefaultHalfOpenProbes   = 3
	DefaultHealthCheckMS    = 10000
	DefaultHealthEnabled    = true
)

// CircuitBreakerConfig defines circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// OpenDurationMS is how long the circuit stays open before probing.
	OpenDurationMS int `yaml:"open_duration_ms" toml:"open_duration_ms"`

	// HalfOpenProbes is the number of calls let through while half-open.
	HalfOpenProbes int `yaml:"half_open_probes" toml:"half_open_probes"`

	Enabled *bool `yaml:"enabled" toml:"enabled"`
}

// IsEnabled defaults to true.
func (c *CircuitBreakerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// GetFailureThreshold returns the threshold or DefaultFailureThreshold.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration or the 30s default.
func (c *CircuitBreakerConfig) GetOpenDuration() time.Duration {
	if c.OpenDurationMS <= 0 {
		return time.Duration(DefaultOpenDurationMS) * time.Millisecond
	}
	return time.Duration(c.OpenDurationMS) * time.Millisecond
}

// GetHalfOpenProbes returns the probe count or DefaultHalfOpenProbes.
func (c *CircuitBreakerConfig) GetHalfOpenProbes() int {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return c.HalfOpenProbes
}

// CheckConfig defines background ping behavior.
type CheckConfig struct {
	Enabled    *bool `yaml:"enabled" toml:"enabled"`
	IntervalMS int   `yaml:"interval_ms" toml:"interval_ms"`
}

// GetInterval returns the ping interval or the 10s default.
func (c *CheckConfig) GetInterval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Duration(DefaultHealthCheckMS) * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// IsEnabled defaults to true.
func (c *CheckConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return DefaultHealthEnabled
	}
	return *c.Enabled
}

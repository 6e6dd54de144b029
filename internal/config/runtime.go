package config

import "sync/atomic"

// Runtime holds the current configuration. Readers never block; the watcher
// swaps in a new *Config on reload and requests already holding the old one
// finish with it.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime stores initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store replaces the current configuration.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)

package kv

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects the kv backend.
type Mode string

const (
	// ModeLocal keeps values in an in-process Ristretto cache.
	ModeLocal Mode = "local"

	// ModeCluster keeps values in an Olric distributed map.
	ModeCluster Mode = "cluster"
)

// Config selects and configures a backend.
type Config struct {
	Mode      Mode            `yaml:"mode" toml:"mode"`
	Olric     OlricConfig     `yaml:"olric" toml:"olric"`
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
}

// RistrettoConfig sizes the local backend.
type RistrettoConfig struct {
	// NumCounters should be about 10x the expected number of sessions.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost bounds the total bytes of stored values.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// OlricConfig configures the cluster backend. Embedded runs a node inside
// the process; otherwise Addresses lists existing cluster members.
type OlricConfig struct {
	DMapName     string        `yaml:"dmap_name" toml:"dmap_name"`
	BindAddr     string        `yaml:"bind_addr" toml:"bind_addr"`
	Environment  string        `yaml:"environment" toml:"environment"`
	Addresses    []string      `yaml:"addresses" toml:"addresses"`
	Peers        []string      `yaml:"peers" toml:"peers"`
	StartTimeout time.Duration `yaml:"start_timeout" toml:"start_timeout"`
	Embedded     bool          `yaml:"embedded" toml:"embedded"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("kv: ristretto.max_cost must be positive")
		}
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("kv: ristretto.num_counters must be positive")
		}
	case ModeCluster:
		if !c.Olric.Embedded && len(c.Olric.Addresses) == 0 {
			return errors.New("kv: olric.addresses required when not embedded")
		}
		if c.Olric.Embedded && c.Olric.BindAddr == "" {
			return errors.New("kv: olric.bind_addr required when embedded")
		}
	case "":
		return errors.New("kv: mode is required")
	default:
		return fmt.Errorf("kv: unknown mode %q", c.Mode)
	}
	return nil
}

// DefaultConfig returns a local store sized for about 100K sessions.
func DefaultConfig() Config {
	return Config{
		Mode: ModeLocal,
		Ristretto: RistrettoConfig{
			NumCounters: 1_000_000,
			MaxCost:     64 << 20,
			BufferItems: 64,
		},
		Olric: OlricConfig{
			DMapName:    "authgate-sessions",
			Environment: "local",
		},
	}
}

package kv

import (
	"context"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{name: "missing mode", mutate: func(c *Config) { c.Mode = "" }, wantErr: "mode is required"},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "disk" }, wantErr: "unknown mode"},
		{name: "zero max cost", mutate: func(c *Config) { c.Ristretto.MaxCost = 0 }, wantErr: "max_cost"},
		{name: "zero counters", mutate: func(c *Config) { c.Ristretto.NumCounters = 0 }, wantErr: "num_counters"},
		{
			name:    "cluster client without addresses",
			mutate:  func(c *Config) { c.Mode = ModeCluster },
			wantErr: "addresses required",
		},
		{
			name:    "embedded without bind addr",
			mutate:  func(c *Config) { c.Mode = ModeCluster; c.Olric.Embedded = true },
			wantErr: "bind_addr required",
		},
		{
			name:   "cluster client",
			mutate: func(c *Config) { c.Mode = ModeCluster; c.Olric.Addresses = []string{"10.0.0.1:3320"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	s, err := Open(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*ristrettoStore); !ok {
		t.Errorf("Open(local) returned %T", s)
	}

	bad := Config{}
	if _, err := Open(context.Background(), &bad); err == nil {
		t.Error("Open with empty config should fail")
	}
}

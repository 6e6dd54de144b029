package kv

import (
	"context"
	"time"
)

// Open validates cfg and starts the selected backend.
// ctx bounds cluster startup; the local backend ignores it.
func Open(ctx context.Context, cfg *Config) (Store, error) {
	log := logger()
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store Store
		err   error
	)
	if cfg.Mode == ModeCluster {
		store, err = openOlric(ctx, &cfg.Olric)
	} else {
		store, err = openRistretto(cfg.Ristretto)
	}
	if err != nil {
		log.Error().Err(err).Str("mode", string(cfg.Mode)).Msg("kv backend failed to start")
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Dur("init_time", time.Since(start)).
		Msg("kv backend ready")
	return store, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/omarluq/authgate/internal/health"
	"github.com/omarluq/authgate/internal/kv"
)

// Open validates cfg and connects the selected backend. lifetime is the
// session duration and sizes backend TTLs. Unless disabled, the result is
// wrapped in a circuit breaker and can be type-asserted to *Guarded.
func Open(ctx context.Context, cfg *Config, lifetime time.Duration, logger *zerolog.Logger) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	repo, err := open(ctx, cfg, lifetime)
	if err != nil {
		logger.Error().Err(err).Str("backend", string(cfg.Backend)).Msg("session repository failed to open")
		return nil, err
	}
	logger.Info().Str("backend", string(cfg.Backend)).Msg("session repository ready")

	if !cfg.CircuitBreaker.IsEnabled() {
		return repo, nil
	}
	breaker := health.NewCircuitBreaker(string(cfg.Backend), cfg.CircuitBreaker, IsBackendFailure, logger)
	return NewGuarded(repo, breaker), nil
}

func open(ctx context.Context, cfg *Config, lifetime time.Duration) (Repository, error) {
	switch cfg.Backend {
	case BackendFile:
		return OpenFile(cfg.File.Path)

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisRepository(client, cfg.Redis.KeyPrefix, lifetime), nil

	case BackendPostgres:
		repo, err := OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = repo.Close()
				return nil, err
			}
		}
		return repo, nil

	case BackendS3:
		return NewS3Repository(NewS3Client(cfg.S3), cfg.S3.Bucket, cfg.S3.Prefix), nil

	case BackendKV:
		store, err := kv.Open(ctx, &cfg.KV.Store)
		if err != nil {
			return nil, err
		}
		return NewKVRepository(store, cfg.KV.KeyPrefix, lifetime), nil
	}
	return nil, fmt.Errorf("repository: unknown backend %q", cfg.Backend)
}

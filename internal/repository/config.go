package repository

import (
	"errors"
	"fmt"

	"github.com/omarluq/authgate/internal/health"
	"github.com/omarluq/authgate/internal/kv"
)

// Backend names a durable repository implementation.
type Backend string

// Supported backends.
const (
	BackendFile     Backend = "file"
	BackendKV       Backend = "kv"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendS3       Backend = "s3"
)

// Config selects and configures the durable repository.
type Config struct {
	Backend        Backend                     `yaml:"backend" toml:"backend"`
	File           FileConfig                  `yaml:"file" toml:"file"`
	Redis          RedisConfig                 `yaml:"redis" toml:"redis"`
	Postgres       PostgresConfig              `yaml:"postgres" toml:"postgres"`
	S3             S3Config                    `yaml:"s3" toml:"s3"`
	KV             KVConfig                    `yaml:"kv" toml:"kv"`
	CircuitBreaker health.CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
	HealthCheck    health.CheckConfig          `yaml:"health_check" toml:"health_check"`
}

// FileConfig configures the JSON file backend.
type FileConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" toml:"addr"`
	Password  string `yaml:"password" toml:"password"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix"`
	DB        int    `yaml:"db" toml:"db"`
}

// PostgresConfig configures the Postgres backend.
type PostgresConfig struct {
	DSN         string `yaml:"dsn" toml:"dsn"`
	Table       string `yaml:"table" toml:"table"`
	AutoMigrate bool   `yaml:"auto_migrate" toml:"auto_migrate"`
}

// KVConfig configures the kv-backed repository.
type KVConfig struct {
	KeyPrefix string    `yaml:"key_prefix" toml:"key_prefix"`
	Store     kv.Config `yaml:"store" toml:"store"`
}

// DefaultConfig returns a file backend writing sessions.json.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFile,
		File:    FileConfig{Path: "sessions.json"},
		KV:      KVConfig{Store: kv.DefaultConfig()},
	}
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.File.Path == "" {
			return errors.New("repository: file.path is required")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("repository: redis.addr is required")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("repository: postgres.dsn is required")
		}
		if c.Postgres.Table != "" && !validTable.MatchString(c.Postgres.Table) {
			return fmt.Errorf("%w: %q", ErrInvalidTable, c.Postgres.Table)
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("repository: s3.bucket is required")
		}
		if c.S3.Region == "" {
			return errors.New("repository: s3.region is required")
		}
	case BackendKV:
		return c.KV.Store.Validate()
	default:
		return fmt.Errorf("repository: unknown backend %q", c.Backend)
	}
	return nil
}

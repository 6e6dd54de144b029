package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authgate/internal/repository"
)

const testHash = "$2a$10$abcdefghijklmnopqrstuv"

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr string
	}{
		{name: "missing listen", mutate: func(c *Config) { c.Server.Listen = "" }, wantErr: "server.listen is required"},
		{name: "bad listen", mutate: func(c *Config) { c.Server.Listen = "localhost" }, wantErr: "host:port"},
		{name: "negative timeout", mutate: func(c *Config) { c.Server.TimeoutMS = -1 }, wantErr: "server.timeout_ms"},
		{name: "unknown auth type", mutate: func(c *Config) { c.Auth.Type = "oauth" }, wantErr: "auth.type is invalid"},
		{name: "empty chain", mutate: func(c *Config) { c.Auth.Type = "chain" }, wantErr: "auth.chain must not be empty"},
		{name: "nested chain", mutate: func(c *Config) {
			c.Auth.Type = "chain"
			c.Auth.Chain = []string{"basic_auth", "chain"}
		}, wantErr: "cannot be a chain"},
		{name: "two session strategies", mutate: func(c *Config) {
			c.Auth.Type = "chain"
			c.Auth.Chain = []string{"session_auth", "session_exp_auth"}
		}, wantErr: "at most one session strategy"},
		{name: "chain without chain type", mutate: func(c *Config) { c.Auth.Chain = []string{"basic_auth"} }, wantErr: "only used when"},
		{name: "relative exempt path", mutate: func(c *Config) { c.Auth.ExemptPaths = []string{"api/v1/status"} }, wantErr: "must start with /"},
		{name: "bad cookie name", mutate: func(c *Config) { c.Auth.SessionName = "a b" }, wantErr: "auth.session_name"},
		{name: "negative sweep", mutate: func(c *Config) { c.Session.ExpirySweepSeconds = -5 }, wantErr: "expiry_sweep_interval"},
		{name: "db sessions need repository", mutate: func(c *Config) {
			c.Auth.Type = "session_db_auth"
			c.Session.Repository.Backend = repository.BackendRedis
		}, wantErr: "session.redis.addr is required"},
		{name: "user without email", mutate: func(c *Config) {
			c.Users = []UserConfig{{PasswordHash: testHash}}
		}, wantErr: "users[0].email is required"},
		{name: "plaintext password", mutate: func(c *Config) {
			c.Users = []UserConfig{{Email: "a@b.c", PasswordHash: "hunter2"}}
		}, wantErr: "bcrypt"},
		{name: "duplicate email", mutate: func(c *Config) {
			c.Users = []UserConfig{
				{Email: "A@b.c", PasswordHash: testHash},
				{Email: "a@b.c ", PasswordHash: testHash},
			}
		}, wantErr: "duplicate user email"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Server.Listen = ""
	cfg.Auth.Type = "bogus"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 3)
	assert.Contains(t, err.Error(), "3 errors")
}

func TestValidateChainWithSessionDB(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Auth.Type = "chain"
	cfg.Auth.Chain = []string{"basic_auth", "session_db_auth"}
	cfg.Session.Repository.File.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file.path is required")
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	errs := &ValidationError{}
	require.NoError(t, errs.ToError())
	assert.Equal(t, "config validation failed", errs.Error())

	errs.Add("first")
	assert.Equal(t, "config validation failed: first", errs.Error())
	errs.Addf("second %d", 2)
	assert.Contains(t, errs.Error(), "  - second 2")
	require.Error(t, errs.ToError())
}

// Package config provides configuration loading, parsing, and hot-reload for authgate.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/repository"
)

// RuntimeConfig gives access to the current configuration. Components that
// must observe hot-reloads hold this instead of a *Config.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// DefaultExemptPaths are reachable without credentials unless auth.exempt_paths
// is set.
var DefaultExemptPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
}

// Config represents the complete authgate configuration.
type Config struct {
	Users   []UserConfig  `yaml:"users" toml:"users"`
	Auth    AuthConfig    `yaml:"auth" toml:"auth"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Session SessionConfig `yaml:"session" toml:"session"`
}

// ServerConfig defines server-level settings.
type ServerConfig struct {
	Listen      string `yaml:"listen" toml:"listen"`
	TimeoutMS   int    `yaml:"timeout_ms" toml:"timeout_ms"`
	EnableHTTP2 bool   `yaml:"enable_http2" toml:"enable_http2"` // h2c
}

// GetTimeoutOption returns the request timeout, or None when unset.
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// AuthConfig selects the authentication strategy.
type AuthConfig struct {
	// Type is one of none, basic_auth, session_auth, session_exp_auth,
	// session_db_auth or chain. Overridden by AUTH_TYPE.
	Type string `yaml:"type" toml:"type"`

	// Chain lists the strategies tried in order when Type is chain.
	Chain []string `yaml:"chain" toml:"chain"`

	// ExemptPaths are matched with an optional trailing slash. Nil means
	// DefaultExemptPaths; an empty list protects everything.
	ExemptPaths []string `yaml:"exempt_paths" toml:"exempt_paths"`

	// SessionName is the session cookie name.
	SessionName string `yaml:"session_name" toml:"session_name"`

	LoginRate LoginRateConfig `yaml:"login_rate" toml:"login_rate"`
}

// GetType returns the configured strategy type, defaulting to none.
func (a *AuthConfig) GetType() auth.Type {
	if a.Type == "" {
		return auth.TypeNone
	}
	return auth.Type(strings.TrimSpace(a.Type))
}

// GetChain returns the chain members as strategy types.
func (a *AuthConfig) GetChain() []auth.Type {
	types := make([]auth.Type, 0, len(a.Chain))
	for _, t := range a.Chain {
		types = append(types, auth.Type(strings.TrimSpace(t)))
	}
	return types
}

// GetExemptPaths returns the exemption list with default fallback.
func (a *AuthConfig) GetExemptPaths() []string {
	if a.ExemptPaths == nil {
		return append([]string(nil), DefaultExemptPaths...)
	}
	return a.ExemptPaths
}

// GetSessionName returns the cookie name with default fallback.
func (a *AuthConfig) GetSessionName() string {
	if a.SessionName == "" {
		return auth.DefaultCookieName
	}
	return a.SessionName
}

// UsesSessions reports whether the configured strategy, or any chain
// member, needs a session store.
func (a *AuthConfig) UsesSessions() bool {
	return a.SessionType().IsPresent()
}

// SessionType returns the session strategy in use, looking through chains.
func (a *AuthConfig) SessionType() mo.Option[auth.Type] {
	t := a.GetType()
	if t.IsSession() {
		return mo.Some(t)
	}
	if t != auth.TypeChain {
		return mo.None[auth.Type]()
	}
	for _, member := range a.GetChain() {
		if member.IsSession() {
			return mo.Some(member)
		}
	}
	return mo.None[auth.Type]()
}

// LoginRateConfig throttles login attempts per client address.
type LoginRateConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int `yaml:"burst" toml:"burst"`
}

// Default login throttling.
const (
	DefaultLoginRPM   = 30
	DefaultLoginBurst = 5
)

// GetRequestsPerMinute returns the rate with default fallback. A negative
// value disables throttling and returns 0.
func (l *LoginRateConfig) GetRequestsPerMinute() int {
	switch {
	case l.RequestsPerMinute < 0:
		return 0
	case l.RequestsPerMinute == 0:
		return DefaultLoginRPM
	default:
		return l.RequestsPerMinute
	}
}

// GetBurst returns the burst with default fallback.
func (l *LoginRateConfig) GetBurst() int {
	if l.Burst <= 0 {
		return DefaultLoginBurst
	}
	return l.Burst
}

// SessionConfig defines session lifetime and storage.
type SessionConfig struct {
	Repository repository.Config `yaml:"repository" toml:"repository"`

	// DurationSeconds is the session lifetime. Zero or negative means sessions
	// never expire. Overridden by SESSION_DURATION.
	DurationSeconds int `yaml:"duration_seconds" toml:"duration_seconds"`

	// ExpirySweepSeconds, when positive, removes expired sessions from memory
	// in the background.
	ExpirySweepSeconds int `yaml:"expiry_sweep_interval" toml:"expiry_sweep_interval"`

	// HydrateOnStart loads every stored session at startup instead of lazily.
	HydrateOnStart bool `yaml:"hydrate_on_start" toml:"hydrate_on_start"`
}

// MaxSessionDuration caps configured lifetimes and sweep intervals so they
// stay representable once a backend adds its retention grace.
const MaxSessionDuration = 100 * 365 * 24 * time.Hour

// GetDuration returns the session lifetime, zero meaning unlimited.
// Values above MaxSessionDuration are clamped to it.
func (s *SessionConfig) GetDuration() time.Duration {
	return clampSeconds(s.DurationSeconds)
}

// GetSweepIntervalOption returns the sweep interval, or None when disabled.
func (s *SessionConfig) GetSweepIntervalOption() mo.Option[time.Duration] {
	if s.ExpirySweepSeconds <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(clampSeconds(s.ExpirySweepSeconds))
}

func clampSeconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	if int64(n) > int64(MaxSessionDuration/time.Second) {
		return MaxSessionDuration
	}
	return time.Duration(n) * time.Second
}

// UserConfig is one account in the built-in user directory.
type UserConfig struct {
	ID           string `yaml:"id" toml:"id"`
	Email        string `yaml:"email" toml:"email"`
	PasswordHash string `yaml:"password_hash" toml:"password_hash"` // bcrypt
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // enable colored console output

	// LogFormFields logs login form fields at debug level, with PII redacted.
	LogFormFields bool `yaml:"log_form_fields" toml:"log_form_fields"`
}

// ParseLevel converts the level string to a zerolog.Level, defaulting to info.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Default returns a runnable configuration: no authentication, in-memory
// sessions, JSON logs on stdout.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: "127.0.0.1:5000", TimeoutMS: 30000},
		Auth: AuthConfig{
			Type:        string(auth.TypeNone),
			ExemptPaths: append([]string(nil), DefaultExemptPaths...),
			SessionName: auth.DefaultCookieName,
		},
		Session: SessionConfig{Repository: repository.DefaultConfig()},
		Logging: LoggingConfig{Level: LevelInfo, Format: "json", Output: "stdout"},
	}
}

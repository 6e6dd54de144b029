package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Environment variables that override file settings.
const (
	EnvAuthType        = "AUTH_TYPE"
	EnvSessionDuration = "SESSION_DURATION"
)

// envRef matches ${VAR}. Bare $VAR is left alone so bcrypt hashes survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// detectFormat picks the syntax from the file extension. Anything that is
// not .toml is read as YAML.
func detectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads the file at path, expands ${VAR} references, parses it and
// applies environment overrides.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return parse(content, detectFormat(path))
}

// LoadFromReader parses YAML from r.
func LoadFromReader(r io.Reader) (*Config, error) {
	return LoadFromReaderWithFormat(r, FormatYAML)
}

// LoadFromReaderWithFormat parses r as format.
func LoadFromReaderWithFormat(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parse(content, format)
}

func parse(content []byte, format Format) (*Config, error) {
	expanded := []byte(expandEnv(string(content)))

	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.NewDecoder(bytes.NewReader(expanded)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	applyEnv(&cfg, os.LookupEnv)
	return &cfg, nil
}

// applyEnv overrides the auth type and session duration from the
// environment. A SESSION_DURATION that is not an integer means 0; one out of
// range saturates and is clamped by GetDuration.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAuthType); ok && strings.TrimSpace(v) != "" {
		cfg.Auth.Type = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvSessionDuration); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			n = 0
		}
		cfg.Session.DurationSeconds = n
	}
}

// Marshal renders cfg in format.
func Marshal(cfg *Config, format Format) ([]byte, error) {
	if format == FormatTOML {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}

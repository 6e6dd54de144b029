package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/config"
)

// ConfigService holds the loaded configuration with hot-reload support.
// Reads go through an atomic pointer so in-flight requests keep the config
// they started with.
type ConfigService struct {
	runtime *config.Runtime
	watcher *config.Watcher
	path    string
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Runtime exposes the live config to components that take a RuntimeConfig.
func (c *ConfigService) Runtime() *config.Runtime {
	return c.runtime
}

// Path returns the config file path.
func (c *ConfigService) Path() string {
	return c.path
}

// StartWatching begins watching the config file. Call it after the container
// is fully initialized so every service has registered its callback.
// Cancel ctx to stop watching.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnReload(func(newCfg *config.Config) error {
		c.runtime.Store(newCfg)
		log.Info().Str("path", c.path).Msg("config hot-reloaded successfully")
		return nil
	})

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// onReload registers cb with the watcher when hot-reload is available.
func (c *ConfigService) onReload(cb config.ReloadCallback) {
	if c.watcher != nil {
		c.watcher.OnReload(cb)
	}
}

// Shutdown implements do.Shutdowner.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the config file and creates a watcher.
// The watcher is not started; see StartWatching.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	svc := &ConfigService{runtime: config.NewRuntime(cfg), path: path}

	// Hot-reload is optional.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
	}

	return svc, nil
}

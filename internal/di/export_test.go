package di

import "github.com/omarluq/authgate/internal/config"

// Exported for testing.

// GetWatcher returns the watcher for testing purposes.
func (c *ConfigService) GetWatcher() *config.Watcher {
	return c.watcher
}

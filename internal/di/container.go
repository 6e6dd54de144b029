// Package di provides dependency injection using samber/do v2.
// It creates and configures the DI container with all service providers.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
)

// ConfigPathKey is the named key for the config path string.
const ConfigPathKey = "config.path"

// Container wraps the do.Injector with authgate's services.
type Container struct {
	injector *do.RootScope
}

// NewContainer creates the container and registers every service provider.
// Services are built lazily on first Invoke.
func NewContainer(configPath string) (*Container, error) {
	injector := do.New()
	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	RegisterSingletons(injector)

	return &Container{injector: injector}, nil
}

// Injector returns the underlying do.Injector for service resolution.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service from the container.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service from the container or panics.
// Use this only during startup where errors are fatal.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// Shutdown shuts services down in reverse order of initialization.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan *do.ShutdownReport, 1)
	go func() {
		done <- c.injector.ShutdownWithContext(ctx)
	}()

	select {
	case report := <-done:
		if report != nil && !report.Succeed {
			return fmt.Errorf("shutdown failed: %s", report.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// HealthCheck resolves the core services, surfacing construction errors
// before the server starts.
func (c *Container) HealthCheck() error {
	if _, err := do.Invoke[*ConfigService](c.injector); err != nil {
		return fmt.Errorf("config service unhealthy: %w", err)
	}
	if _, err := do.Invoke[*AuthService](c.injector); err != nil {
		return fmt.Errorf("auth service unhealthy: %w", err)
	}
	return nil
}

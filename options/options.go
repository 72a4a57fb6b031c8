// Package options holds the functional configuration surface for creating
// engines.
package options

import (
	"log/slog"

	"github.com/dynrun/dynrun/engine"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/data"
)

// Config holds all configuration for creating an engine.
type Config struct {
	// Logger handler for the engine
	handler slog.Handler
	// Data provider seeding execution-context attributes
	dataProvider data.Provider
	// Process-wide fallbacks for options absent from the execution context
	defaults engine.Defaults
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogger sets the logger handler for the engine
func WithLogger(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler != nil {
			c.handler = handler
		}
		return nil
	}
}

// WithDataProvider sets the data provider for the engine
func WithDataProvider(provider data.Provider) Option {
	return func(c *Config) error {
		if provider != nil {
			c.dataProvider = provider
		}
		return nil
	}
}

// WithSourcePath sets the fallback source path
func WithSourcePath(sourcePath string) Option {
	return func(c *Config) error {
		c.defaults.SourcePath = sourcePath
		return nil
	}
}

// WithClassPath sets the fallback class path
func WithClassPath(classPath string) Option {
	return func(c *Config) error {
		c.defaults.ClassPath = classPath
		return nil
	}
}

// WithEntryName sets the fallback explicit entry-unit name
func WithEntryName(entryName string) Option {
	return func(c *Config) error {
		c.defaults.EntryName = entryName
		return nil
	}
}

// WithParentNamespace sets the fallback parent namespace for delegated
// resolution
func WithParentNamespace(parent platform.Namespace) Option {
	return func(c *Config) error {
		if parent != nil {
			c.defaults.Parent = parent
		}
		return nil
	}
}

// GetHandler returns the configured logger handler
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// GetDataProvider returns the configured data provider
func (c *Config) GetDataProvider() data.Provider {
	return c.dataProvider
}

// GetDefaults returns the configured process-wide fallbacks
func (c *Config) GetDefaults() engine.Defaults {
	return c.defaults
}

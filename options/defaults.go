package options

import (
	"log/slog"
	"os"
	"sync"

	"github.com/dynrun/dynrun/engine"
	"github.com/dynrun/dynrun/platform/data"
)

// Environment variables providing the process-wide option fallbacks, the
// analogue of system-property configuration. Read once, at first use.
const (
	EnvSourcePath = "DYNRUN_SOURCEPATH"
	EnvClassPath  = "DYNRUN_CLASSPATH"
	EnvEntryName  = "DYNRUN_MAIN_UNIT"
)

var processDefaultsOnce = sync.OnceValue(func() engine.Defaults {
	return engine.Defaults{
		SourcePath: os.Getenv(EnvSourcePath),
		ClassPath:  os.Getenv(EnvClassPath),
		EntryName:  os.Getenv(EnvEntryName),
		Parent:     engine.NewEmptyNamespace(),
	}
})

// ProcessDefaults resolves the ambient process configuration once and
// returns it on every call. Engines receive it injected through
// DefaultConfig, never by reading the environment during evaluation.
func ProcessDefaults() engine.Defaults {
	return processDefaultsOnce()
}

// DefaultConfig initializes a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		handler:      DefaultHandler(),
		dataProvider: DefaultDataProvider(),
		defaults:     ProcessDefaults(),
	}
}

// DefaultHandler returns the default logging handler
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stdout, nil)
}

// DefaultDataProvider returns the default data provider
func DefaultDataProvider() data.Provider {
	return data.NewStaticProvider(map[string]any{})
}

// WithDefaults applies default values to any config properties left unset
func WithDefaults() Option {
	return func(c *Config) error {
		if c.handler == nil {
			c.handler = DefaultHandler()
		}
		if c.dataProvider == nil {
			c.dataProvider = DefaultDataProvider()
		}
		if c.defaults.Parent == nil {
			c.defaults.Parent = engine.NewEmptyNamespace()
		}
		return nil
	}
}

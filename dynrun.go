// Package dynrun provides one-call constructors for the supported backends,
// wiring the options surface into an engine. Scripts compile to reusable
// units following the "compile once, run many times" pattern, or run in a
// single shot through each engine's Eval.
package dynrun

import (
	"context"
	"fmt"

	"github.com/dynrun/dynrun/engine"
	"github.com/dynrun/dynrun/engines/extism"
	"github.com/dynrun/dynrun/engines/risor"
	"github.com/dynrun/dynrun/engines/starlark"
	"github.com/dynrun/dynrun/options"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/script/loader"
)

// NewStarlarkEngine creates an engine for Starlark scripts.
func NewStarlarkEngine(opts ...options.Option) (*engine.Engine, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return engine.New(
		cfg.GetHandler(),
		starlark.New(cfg.GetHandler()),
		cfg.GetDataProvider(),
		cfg.GetDefaults(),
	)
}

// NewRisorEngine creates an engine for Risor scripts.
func NewRisorEngine(opts ...options.Option) (*engine.Engine, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return engine.New(
		cfg.GetHandler(),
		risor.New(cfg.GetHandler()),
		cfg.GetDataProvider(),
		cfg.GetDefaults(),
	)
}

// NewExtismEngine creates an engine for WASM modules.
func NewExtismEngine(opts ...options.Option) (*engine.Engine, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return engine.New(
		cfg.GetHandler(),
		extism.New(cfg.GetHandler()),
		cfg.GetDataProvider(),
		cfg.GetDefaults(),
	)
}

// buildConfig applies options over the process defaults.
func buildConfig(opts []options.Option) (*options.Config, error) {
	cfg := options.DefaultConfig()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if err := options.WithDefaults()(cfg); err != nil {
		return nil, fmt.Errorf("error applying defaults: %w", err)
	}
	return cfg, nil
}

// FromStarlarkString compiles a Starlark script from a string into a
// reusable unit.
func FromStarlarkString(
	ctx context.Context,
	content string,
	opts ...options.Option,
) (*engine.CompiledUnit, error) {
	eng, err := NewStarlarkEngine(opts...)
	if err != nil {
		return nil, err
	}
	return compileFromString(ctx, eng, content)
}

// FromRisorString compiles a Risor script from a string into a reusable
// unit.
func FromRisorString(
	ctx context.Context,
	content string,
	opts ...options.Option,
) (*engine.CompiledUnit, error) {
	eng, err := NewRisorEngine(opts...)
	if err != nil {
		return nil, err
	}
	return compileFromString(ctx, eng, content)
}

// FromExtismFile compiles a WASM module from a file into a reusable unit.
func FromExtismFile(
	ctx context.Context,
	filePath string,
	opts ...options.Option,
) (*engine.CompiledUnit, error) {
	eng, err := NewExtismEngine(opts...)
	if err != nil {
		return nil, err
	}
	ld, err := loader.NewFromDisk(filePath)
	if err != nil {
		return nil, err
	}
	return eng.Compile(ctx, nil, ld)
}

// EvalStarlarkString runs a Starlark script from a string in a single shot
// and returns the resolved unit.
func EvalStarlarkString(
	ctx context.Context,
	content string,
	opts ...options.Option,
) (platform.Unit, error) {
	eng, err := NewStarlarkEngine(opts...)
	if err != nil {
		return nil, err
	}
	ld, err := loader.NewFromString(content)
	if err != nil {
		return nil, err
	}
	return eng.Eval(ctx, nil, ld)
}

// EvalRisorString runs a Risor script from a string in a single shot and
// returns the resolved unit.
func EvalRisorString(
	ctx context.Context,
	content string,
	opts ...options.Option,
) (platform.Unit, error) {
	eng, err := NewRisorEngine(opts...)
	if err != nil {
		return nil, err
	}
	ld, err := loader.NewFromString(content)
	if err != nil {
		return nil, err
	}
	return eng.Eval(ctx, nil, ld)
}

func compileFromString(
	ctx context.Context,
	eng *engine.Engine,
	content string,
) (*engine.CompiledUnit, error) {
	ld, err := loader.NewFromString(content)
	if err != nil {
		return nil, err
	}
	return eng.Compile(ctx, nil, ld)
}

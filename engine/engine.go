// Package engine orchestrates the compile→store→load→resolve→invoke
// pipeline over a pluggable backend compiler.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/constants"
	"github.com/dynrun/dynrun/platform/data"
	"github.com/dynrun/dynrun/platform/execctx"
	"github.com/dynrun/dynrun/platform/script"
	"github.com/dynrun/dynrun/platform/script/loader"
)

const checksumLength = 12

// unnamedSource is the placeholder stem used when no file name attribute is
// configured; the backend's extension is appended.
const unnamedSource = "$unnamed"

// Defaults carries the process-wide fallbacks for options absent from the
// execution context. Resolved once at engine construction and injected,
// never read ad hoc during evaluation.
type Defaults struct {
	SourcePath string
	ClassPath  string
	EntryName  string
	Parent     platform.Namespace
}

// Engine coordinates one backend through the full pipeline. An Engine may
// be shared by multiple goroutines: each one-shot evaluation builds its own
// artifact set, loader, and resolver.
type Engine struct {
	backend  platform.Backend
	provider data.Provider
	defaults Defaults

	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates an Engine around the given backend. The provider, when
// non-nil, seeds execution-context attributes before each invocation.
func New(
	handler slog.Handler,
	backend platform.Backend,
	provider data.Provider,
	defaults Defaults,
) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	handler, logger := helpers.SetupLogger(handler, backend.Name(), "Engine")

	if defaults.Parent == nil {
		defaults.Parent = NewEmptyNamespace()
	}

	return &Engine{
		backend:    backend,
		provider:   provider,
		defaults:   defaults,
		logHandler: handler,
		logger:     logger,
	}, nil
}

// Backend returns the engine's backend toolchain.
func (e *Engine) Backend() platform.Backend {
	return e.backend
}

// Compile compiles the source behind ld into a reusable CompiledUnit,
// reading configuration attributes from sc with the engine defaults as
// fallback. Loading and entry resolution are deferred to the unit's first
// Execute call.
func (e *Engine) Compile(
	ctx context.Context,
	sc *execctx.Context,
	ld loader.Loader,
) (*CompiledUnit, error) {
	if sc == nil {
		sc = execctx.New()
	}

	cfg := e.resolveConfig(sc)
	fileName := e.resolveFileName(sc)

	src, err := script.NewSourceUnit(fileName, ld)
	if err != nil {
		return nil, err
	}
	if u := ld.GetSourceURL(); u != nil {
		e.logger.DebugContext(ctx, "compiling source", "file", fileName, "sourceURL", u.String())
	}

	set, err := e.compile(ctx, sc, src, cfg)
	if err != nil {
		return nil, err
	}

	id := helpers.SHA256Bytes(src.Text)[:checksumLength]
	return NewCompiledUnit(e.logHandler, id, e.backend, set, cfg)
}

// Eval is the one-shot mode: compile, load, resolve, and invoke in a single
// call. The resolved unit is the result; a nil unit with a nil error means
// the compilation produced no artifacts.
func (e *Engine) Eval(
	ctx context.Context,
	sc *execctx.Context,
	ld loader.Loader,
) (platform.Unit, error) {
	if sc == nil {
		sc = execctx.New()
	}
	runID := uuid.NewString()
	logger := e.logger.With("runID", runID)

	cu, err := e.Compile(ctx, sc, ld)
	if err != nil {
		logger.WarnContext(ctx, "compile failed", "error", err)
		return nil, err
	}
	logger.DebugContext(ctx, "compile complete", "unit", cu.ID)

	unit, err := cu.Execute(ctx, sc)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		logger.DebugContext(ctx, "evaluation resolved no unit")
	}
	return unit, nil
}

// compile seeds provider data into the context, then drives the backend
// compiler with the resolved search paths and a diagnostic sink. When the
// context carries no error writer, diagnostics are captured internally and
// surfaced inside the compile failure; with a caller-supplied writer the
// rendered text goes there and the failure stays generic.
func (e *Engine) compile(
	ctx context.Context,
	sc *execctx.Context,
	src script.SourceUnit,
	cfg SearchConfig,
) (*artifact.Set, error) {
	if err := e.seedAttributes(ctx, sc); err != nil {
		return nil, err
	}

	var capture *strings.Builder
	sink := sc.ErrorWriter()
	if sink == nil {
		capture = &strings.Builder{}
		sink = capture
	}

	req := platform.CompileRequest{
		Sources:     []script.SourceUnit{src},
		SourcePath:  cfg.SourcePath,
		ClassPath:   cfg.ClassPath,
		Diagnostics: sink,
	}

	set, err := e.backend.Compile(ctx, req)
	if err != nil {
		if capture != nil && capture.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(capture.String()))
		}
		return nil, err
	}
	return set, nil
}

// seedAttributes merges provider data into the context's engine scope.
// Existing attributes win: the provider supplies ambient data, not
// overrides.
func (e *Engine) seedAttributes(ctx context.Context, sc *execctx.Context) error {
	if e.provider == nil {
		return nil
	}
	seed, err := e.provider.GetData(ctx)
	if err != nil {
		return fmt.Errorf("failed to get data from provider: %w", err)
	}
	for name, value := range seed {
		if _, exists := sc.GetAttribute(name); exists {
			continue
		}
		if err := sc.SetAttribute(name, value, execctx.EngineScope); err != nil {
			return err
		}
	}
	return nil
}

// resolveFileName returns the logical source file name: the filename
// attribute, or the unnamed placeholder with the backend's extension.
func (e *Engine) resolveFileName(sc *execctx.Context) string {
	if name, ok := sc.StringAttribute(constants.Filename); ok && name != "" {
		return name
	}
	return unnamedSource + e.backend.FileExtension()
}

// resolveConfig builds the search configuration for one compile/load cycle:
// context attribute first, engine default second. A non-empty class path is
// layered behind the parent namespace so delegation can consult it.
func (e *Engine) resolveConfig(sc *execctx.Context) SearchConfig {
	cfg := SearchConfig{
		SourcePath: e.defaults.SourcePath,
		ClassPath:  e.defaults.ClassPath,
		EntryName:  e.defaults.EntryName,
	}
	if v, ok := sc.StringAttribute(constants.SourcePath); ok {
		cfg.SourcePath = v
	}
	if v, ok := sc.StringAttribute(constants.ClassPath); ok {
		cfg.ClassPath = v
	}
	if v, ok := sc.StringAttribute(constants.MainUnit); ok {
		cfg.EntryName = v
	}

	parent := e.defaults.Parent
	if v, ok := sc.GetAttribute(constants.ParentNamespace); ok {
		if ns, ok := v.(platform.Namespace); ok {
			parent = ns
		} else {
			e.logger.Warn("parent_namespace attribute is not a Namespace, ignoring",
				"type", fmt.Sprintf("%T", v))
		}
	}
	if cfg.ClassPath != "" {
		parent = NewCompositeNamespace(parent, NewDirNamespace(cfg.ClassPath, e.backend))
	}
	cfg.Parent = parent

	return cfg
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine.Engine{Backend: %s}", e.backend.Name())
}

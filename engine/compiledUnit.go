package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/execctx"
)

// SearchConfig is the search-path configuration captured once per
// compile/load cycle. Immutable after construction.
type SearchConfig struct {
	// SourcePath holds extra source-resolution roots for the backend.
	SourcePath string

	// ClassPath holds extra binary-resolution roots, consulted through the
	// parent namespace during delegation.
	ClassPath string

	// Parent is the delegation base for the isolated loader.
	Parent platform.Namespace

	// EntryName, when set, forces entry resolution to one named unit.
	EntryName string
}

// CompiledUnit is a cacheable, reusable bundle of compiled artifacts and
// their search configuration, following the compile-once/execute-many
// pattern. Loading and entry resolution are deferred until the first
// Execute call and performed at most once; the outcome, success or failure,
// is cached for the unit's lifetime.
type CompiledUnit struct {
	ID        string
	CreatedAt time.Time

	backend   platform.Backend
	artifacts *artifact.Set
	config    SearchConfig

	logHandler slog.Handler
	logger     *slog.Logger

	mu           sync.Mutex
	materialized bool
	entry        platform.Unit
	linkErr      error
}

// NewCompiledUnit wraps a successful compilation's artifact set. The ID
// identifies the unit in logs; the engine derives it from the source
// checksum.
func NewCompiledUnit(
	handler slog.Handler,
	id string,
	backend platform.Backend,
	artifacts *artifact.Set,
	config SearchConfig,
) (*CompiledUnit, error) {
	handler, logger := helpers.SetupLogger(handler, "engine", "CompiledUnit")

	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact set is nil")
	}

	return &CompiledUnit{
		ID:         id,
		CreatedAt:  time.Now(),
		backend:    backend,
		artifacts:  artifacts,
		config:     config,
		logHandler: handler,
		logger:     logger.With("ID", id),
	}, nil
}

// Artifacts returns the artifact set produced by the compilation.
func (cu *CompiledUnit) Artifacts() *artifact.Set {
	return cu.artifacts
}

// Config returns the captured search configuration.
func (cu *CompiledUnit) Config() SearchConfig {
	return cu.config
}

// Execute materializes the resolved entry unit if this is the first call,
// then runs the invocation sequence against the supplied execution context.
// The resolved unit itself is the result; a nil unit with a nil error means
// the artifact set was empty and nothing qualified.
//
// Execute is safe for concurrent use: concurrent first calls serialize
// around one load+resolve, later calls share the cached unit without
// further locking.
func (cu *CompiledUnit) Execute(ctx context.Context, sc *execctx.Context) (platform.Unit, error) {
	unit, err := cu.materialize(ctx)
	if err != nil {
		return nil, err
	}
	return invokeUnit(ctx, cu.logHandler, unit, sc)
}

// materialize performs load+resolve exactly once. Both the resolved unit
// and a resolution failure are cached: repeated calls never re-run the
// sequence, and no caller can observe a partially initialized state.
func (cu *CompiledUnit) materialize(ctx context.Context) (platform.Unit, error) {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	if cu.materialized {
		return cu.entry, cu.linkErr
	}

	ldr := newIsolatedLoader(cu.logHandler, cu.artifacts, cu.config.Parent, cu.backend)
	unit, err := resolveEntry(ctx, cu.logHandler, ldr, cu.config.EntryName)

	cu.materialized = true
	cu.entry = unit
	cu.linkErr = err

	if err != nil {
		cu.logger.ErrorContext(ctx, "materialization failed", "error", err)
	} else if unit != nil {
		cu.logger.DebugContext(ctx, "materialized entry unit", "unit", unit.Name())
	}
	return cu.entry, cu.linkErr
}

// Close releases backend resources held by the materialized entry unit, if
// it holds any. Safe to call before materialization and more than once.
func (cu *CompiledUnit) Close(ctx context.Context) error {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	if closer, ok := cu.entry.(interface{ Close(context.Context) error }); ok {
		return closer.Close(ctx)
	}
	return nil
}

func (cu *CompiledUnit) String() string {
	return fmt.Sprintf("engine.CompiledUnit{ID: %s, Backend: %s, Artifacts: %d}",
		cu.ID, cu.backend.Name(), cu.artifacts.Len())
}

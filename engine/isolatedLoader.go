package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
)

// isolatedLoader resolves artifact names to loaded units: the artifact store
// first, the parent namespace only on a miss. Artifacts produced by a
// compilation therefore always shadow same-named units visible through the
// parent.
//
// Each materialization constructs a fresh loader over a fresh artifact set;
// linked units are memoized only within one loader instance, so nothing
// resolved here can leak into a later compile/load cycle.
type isolatedLoader struct {
	set    *artifact.Set
	parent platform.Namespace
	linker platform.Linker
	logger *slog.Logger

	mu sync.Mutex
	// nil entry: the name is linking right now, so a re-entrant load of it
	// is a cycle. Non-nil entry: the settled outcome, unit or error.
	linked map[string]*loadResult
}

type loadResult struct {
	unit platform.Unit
	err  error
}

func newIsolatedLoader(
	handler slog.Handler,
	set *artifact.Set,
	parent platform.Namespace,
	linker platform.Linker,
) *isolatedLoader {
	_, logger := helpers.SetupLogger(handler, "engine", "isolatedLoader")
	if parent == nil {
		parent = NewEmptyNamespace()
	}
	return &isolatedLoader{
		set:    set,
		parent: parent,
		linker: linker,
		logger: logger,
		linked: make(map[string]*loadResult),
	}
}

// Load resolves one unit by name. In-language imports re-enter here through
// the Namespace interface, so a unit that names a sibling artifact gets the
// store-resident copy, never a parent one. Re-entering for a name whose
// link is still in flight means the modules load each other; that fails
// instead of recursing.
func (l *isolatedLoader) Load(ctx context.Context, name string) (platform.Unit, error) {
	l.mu.Lock()
	if res, ok := l.linked[name]; ok {
		l.mu.Unlock()
		if res == nil {
			return nil, fmt.Errorf("%w: cyclic load of %q", platform.ErrLinkFailed, name)
		}
		return res.unit, res.err
	}

	payload, ok := l.set.Get(name)
	if !ok {
		l.mu.Unlock()
		l.logger.DebugContext(ctx, "artifact absent from store, delegating", "name", name)
		return l.parent.Lookup(ctx, name)
	}
	l.linked[name] = nil
	l.mu.Unlock()

	unit, err := l.linker.Link(ctx, name, payload, l)
	if err != nil {
		err = fmt.Errorf("loading %q: %w", name, err)
	}

	l.mu.Lock()
	l.linked[name] = &loadResult{unit: unit, err: err}
	l.mu.Unlock()
	return unit, err
}

// LoadAll resolves every artifact in the store, in store order. Any single
// resolution failure fails the whole call.
func (l *isolatedLoader) LoadAll(ctx context.Context) ([]platform.Unit, error) {
	names := l.set.Names()
	units := make([]platform.Unit, 0, len(names))
	for _, name := range names {
		unit, err := l.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// Lookup implements platform.Namespace so backend linkers can delegate
// in-language imports back through the two-tier resolution order.
func (l *isolatedLoader) Lookup(ctx context.Context, name string) (platform.Unit, error) {
	return l.Load(ctx, name)
}

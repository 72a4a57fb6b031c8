package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/script"
)

// EmptyNamespace is the process root namespace: every lookup misses. It is
// the default delegation base when no parent namespace is configured.
type EmptyNamespace struct{}

func NewEmptyNamespace() *EmptyNamespace {
	return &EmptyNamespace{}
}

func (n *EmptyNamespace) Lookup(_ context.Context, name string) (platform.Unit, error) {
	return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, name)
}

func (n *EmptyNamespace) String() string {
	return "engine.EmptyNamespace"
}

// MapNamespace resolves units from a fixed map of pre-linked units. Useful
// as a parent namespace carrying ambient definitions.
type MapNamespace struct {
	units map[string]platform.Unit
}

func NewMapNamespace(units map[string]platform.Unit) *MapNamespace {
	if units == nil {
		units = make(map[string]platform.Unit)
	}
	return &MapNamespace{units: units}
}

func (n *MapNamespace) Lookup(_ context.Context, name string) (platform.Unit, error) {
	unit, ok := n.units[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, name)
	}
	return unit, nil
}

func (n *MapNamespace) String() string {
	return fmt.Sprintf("engine.MapNamespace{Units: %d}", len(n.units))
}

// DirNamespace resolves units from source files under the class-path roots,
// linking them with the backend on demand. This is the delegation target
// that lets a parent namespace consult the class path.
type DirNamespace struct {
	roots   []string
	backend platform.Backend
}

// NewDirNamespace splits classPath on the OS path-list separator and keeps
// the non-empty roots.
func NewDirNamespace(classPath string, backend platform.Backend) *DirNamespace {
	var roots []string
	for _, root := range strings.Split(classPath, string(os.PathListSeparator)) {
		if root = strings.TrimSpace(root); root != "" {
			roots = append(roots, root)
		}
	}
	return &DirNamespace{roots: roots, backend: backend}
}

// Lookup searches each root for <name><ext>, compiles and links the first
// match. Units resolved here link against the empty namespace: class-path
// units cannot reach back into a compilation's artifact store.
func (n *DirNamespace) Lookup(ctx context.Context, name string) (platform.Unit, error) {
	if n.backend == nil {
		return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, name)
	}
	fileName := name + n.backend.FileExtension()
	for _, root := range n.roots {
		text, err := os.ReadFile(filepath.Join(root, fileName))
		if err != nil {
			continue
		}

		set, err := n.backend.Compile(ctx, platform.CompileRequest{
			Sources: []script.SourceUnit{{Name: fileName, Text: text}},
		})
		if err != nil {
			return nil, fmt.Errorf("class path unit %q: %w", name, err)
		}
		payload, ok := set.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, name)
		}

		unit, err := n.backend.Link(ctx, name, payload, NewEmptyNamespace())
		if err != nil {
			return nil, fmt.Errorf("class path unit %q: %w", name, err)
		}
		return unit, nil
	}
	return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, name)
}

func (n *DirNamespace) String() string {
	return fmt.Sprintf("engine.DirNamespace{Roots: %d}", len(n.roots))
}

// CompositeNamespace chains namespaces; the first successful lookup wins.
type CompositeNamespace struct {
	layers []platform.Namespace
}

func NewCompositeNamespace(layers ...platform.Namespace) *CompositeNamespace {
	var kept []platform.Namespace
	for _, layer := range layers {
		if layer != nil {
			kept = append(kept, layer)
		}
	}
	return &CompositeNamespace{layers: kept}
}

func (n *CompositeNamespace) Lookup(ctx context.Context, name string) (platform.Unit, error) {
	for _, layer := range n.layers {
		unit, err := layer.Lookup(ctx, name)
		if err == nil {
			return unit, nil
		}
		// a miss falls through to the next layer; anything else is a hard
		// failure in that layer
		if !errors.Is(err, platform.ErrUnitNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, name)
}

func (n *CompositeNamespace) String() string {
	return fmt.Sprintf("engine.CompositeNamespace{Layers: %d}", len(n.layers))
}

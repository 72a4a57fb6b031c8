// Package platform defines the contracts shared by the engine and the
// backend compilers: loaded units, namespaces, and the backend interface.
package platform

import (
	"context"
	"io"
	"strings"

	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/execctx"
	"github.com/dynrun/dynrun/platform/script"
)

// EntryFunc is a runnable entry point: a zero-instance procedure taking the
// configured argument vector.
type EntryFunc func(ctx context.Context, args []string) error

// ContextSetterFunc receives the execution context before the entry runs.
type ContextSetterFunc func(ctx context.Context, sc *execctx.Context) error

// Unit is a resolved, executable handle bound to an artifact name. Probing
// for the entry and context-setter capabilities returns a tagged-optional
// callable, never an error: absence of a capability is a normal state.
type Unit interface {
	// Name returns the unit's artifact name.
	Name() string

	// Public reports whether the unit is publicly visible. Non-public units
	// are considered only in the second entry-scan pass, but remain fully
	// invocable once selected.
	Public() bool

	// Entry returns the entry callable when the unit has a qualifying entry
	// signature.
	Entry() (EntryFunc, bool)

	// ContextSetter returns the context-setter callable when the unit
	// exposes one.
	ContextSetter() (ContextSetterFunc, bool)
}

// PublicName reports the name-visibility convention shared by the backends:
// a unit whose name starts with an underscore is non-public.
func PublicName(name string) bool {
	return !strings.HasPrefix(name, "_")
}

// Namespace is a resolution scope for units. The isolated loader layers a
// compilation's artifact store over a parent Namespace; lookups that miss
// everywhere return an error wrapping ErrUnitNotFound.
type Namespace interface {
	Lookup(ctx context.Context, name string) (Unit, error)
}

// CompileRequest carries one backend compilation: the source units, the
// search-path augmentation, and the diagnostic sink. Diagnostics are
// rendered to the sink, in original order, only when compilation fails.
type CompileRequest struct {
	Sources     []script.SourceUnit
	SourcePath  string
	ClassPath   string
	Diagnostics io.Writer
}

// Compiler invokes a backend compiler and captures every produced artifact
// into the returned set. On failure the returned error wraps
// ErrCompileFailed and no set is returned.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) (*artifact.Set, error)
}

// Linker materializes an artifact payload into a loaded Unit. The namespace
// argument is the two-tier scope the unit was loaded into; backends whose
// language can import other units by name (Starlark load) resolve those
// imports through it.
type Linker interface {
	Link(ctx context.Context, name string, payload []byte, ns Namespace) (Unit, error)
}

// Backend is a pluggable compile-and-link toolchain. The engine treats it as
// a black box: only this contract is relied upon.
type Backend interface {
	Compiler
	Linker

	// Name identifies the backend ("starlark", "risor", "extism").
	Name() string

	// FileExtension returns the source file extension including the dot,
	// used for the unnamed-source placeholder and for class-path scanning.
	FileExtension() string
}

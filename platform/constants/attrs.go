// Package constants defines the well-known attribute names recognized by
// the engine when it reads configuration from an execution context.
package constants

// ContextKey is a custom type for context.Context keys to avoid collisions
type ContextKey string

// EvalData is the context.Context key used by data.ContextProvider to carry
// attribute maps into an evaluation.
const EvalData ContextKey = "eval_data"

// Attribute names looked up in the execution context, engine scope before
// global scope. Each has a process-wide fallback resolved at engine
// construction (see options.ProcessDefaults).
const (
	// Filename is the logical name of the source unit, used in diagnostics
	// and as the compile-request file name.
	Filename = "filename"

	// SourcePath holds extra source-resolution roots passed to the backend.
	SourcePath = "sourcepath"

	// ClassPath holds extra binary-resolution roots, passed to the backend
	// and consulted during parent-namespace delegation.
	ClassPath = "classpath"

	// MainUnit forces the entry resolver to target one named unit.
	MainUnit = "main_unit"

	// ParentNamespace holds a platform.Namespace used as the delegation base
	// for the isolated loader.
	ParentNamespace = "parent_namespace"

	// Arguments holds the []string argument vector passed to the entry.
	Arguments = "arguments"

	// Context is the attribute under which the engine injects the execution
	// context itself before any invoked code runs.
	Context = "context"
)

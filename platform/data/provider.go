// Package data provides the generic hierarchical data collaborators used to
// seed execution-context attributes for an evaluation.
package data

import (
	"context"
)

// Provider is an interface for retrieving attribute data for an evaluation.
type Provider interface {
	// GetData retrieves a map of string keys to arbitrary values. The engine
	// merges the result into the execution context's engine scope before
	// invocation.
	GetData(ctx context.Context) (map[string]any, error)
}

// Setter is an interface for storing runtime data so a later evaluation can
// retrieve it through a Provider.
type Setter interface {
	// AddDataToContext stores data into the returned context.
	AddDataToContext(ctx context.Context, data ...map[string]any) (context.Context, error)
}

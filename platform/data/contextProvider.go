package data

import (
	"context"
	"fmt"
	"maps"

	"github.com/dynrun/dynrun/platform/constants"
)

// ContextProvider retrieves and stores attribute data in a context.Context
// under a specified key.
type ContextProvider struct {
	contextKey constants.ContextKey
}

// NewContextProvider creates a new ContextProvider with the given context key.
func NewContextProvider(contextKey constants.ContextKey) *ContextProvider {
	return &ContextProvider{
		contextKey: contextKey,
	}
}

// GetData extracts a map[string]any from the context using the configured key.
func (p *ContextProvider) GetData(ctx context.Context) (map[string]any, error) {
	if p.contextKey == "" {
		return nil, fmt.Errorf("context key is empty")
	}

	value := ctx.Value(p.contextKey)
	if value == nil {
		return make(map[string]any), nil
	}

	inputData, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid input data type: expected map[string]any, got %T", value)
	}

	return maps.Clone(inputData), nil
}

// AddDataToContext merges the given maps, later maps overwriting earlier
// keys, and stores the result in a new context for a later GetData call.
func (p *ContextProvider) AddDataToContext(
	ctx context.Context,
	data ...map[string]any,
) (context.Context, error) {
	if p.contextKey == "" {
		return ctx, fmt.Errorf("context key is empty")
	}

	toStore := make(map[string]any)
	if existing, ok := ctx.Value(p.contextKey).(map[string]any); ok {
		maps.Copy(toStore, existing)
	}
	for _, item := range data {
		maps.Copy(toStore, item)
	}

	return context.WithValue(ctx, p.contextKey, toStore), nil
}

package data

import (
	"context"
	"errors"
	"maps"
)

// ErrStaticProviderNoRuntimeUpdates is returned by StaticProvider when a
// caller attempts to add runtime data to it.
var ErrStaticProviderNoRuntimeUpdates = errors.New(
	"StaticProvider doesn't support adding data at runtime")

// StaticProvider returns a predefined map of data. It's useful for testing
// and for cases where the attribute data is known in advance and doesn't
// need to be retrieved from the context or external sources.
type StaticProvider struct {
	data map[string]any
}

// NewStaticProvider creates a new StaticProvider with the provided data map.
func NewStaticProvider(data map[string]any) *StaticProvider {
	if data == nil {
		data = make(map[string]any)
	}
	return &StaticProvider{
		data: data,
	}
}

// GetData returns a clone of the static data map, regardless of the context.
func (p *StaticProvider) GetData(_ context.Context) (map[string]any, error) {
	return maps.Clone(p.data), nil
}

// AddDataToContext always fails, the static data is sealed at creation.
func (p *StaticProvider) AddDataToContext(
	ctx context.Context,
	_ ...map[string]any,
) (context.Context, error) {
	return ctx, ErrStaticProviderNoRuntimeUpdates
}

package data

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// CompositeProvider combines multiple providers and merges their results.
// Later providers in the chain can override values from earlier providers.
type CompositeProvider struct {
	providers []Provider
}

// NewCompositeProvider creates a new CompositeProvider with the given
// providers, queried in the order they are provided.
func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{
		providers: providers,
	}
}

// GetData calls each provider in sequence and merges the results.
func (p *CompositeProvider) GetData(ctx context.Context) (map[string]any, error) {
	result := make(map[string]any)

	for i, provider := range p.providers {
		if provider == nil {
			continue
		}

		data, err := provider.GetData(ctx)
		if err != nil {
			return nil, fmt.Errorf("error from provider %d: %w", i, err)
		}

		maps.Copy(result, data)
	}

	return result, nil
}

// AddDataToContext forwards the data to every provider that implements
// Setter. Providers that reject runtime updates (StaticProvider) are
// skipped; the call fails only when no provider accepted the data.
func (p *CompositeProvider) AddDataToContext(
	ctx context.Context,
	data ...map[string]any,
) (context.Context, error) {
	accepted := false
	var errz []error

	for _, provider := range p.providers {
		setter, ok := provider.(Setter)
		if !ok {
			continue
		}
		newCtx, err := setter.AddDataToContext(ctx, data...)
		if err != nil {
			if errors.Is(err, ErrStaticProviderNoRuntimeUpdates) {
				continue
			}
			errz = append(errz, err)
			continue
		}
		ctx = newCtx
		accepted = true
	}

	if !accepted && len(errz) == 0 {
		return ctx, fmt.Errorf("no provider in the chain accepts runtime data")
	}
	return ctx, errors.Join(errz...)
}

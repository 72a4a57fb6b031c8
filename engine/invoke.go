package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/constants"
	"github.com/dynrun/dynrun/platform/execctx"
)

// invokeUnit runs the invocation sequence against a resolved unit:
//
//  1. inject the execution context into its own attribute store under the
//     context attribute, before any user code runs (required even when no
//     unit was resolved);
//  2. call the unit's context setter, when it has one;
//  3. call the unit's entry with the context's argument vector, when it has
//     one;
//  4. return the unit itself as the result, regardless of what the entry
//     produced.
//
// Errors raised by the setter or the entry are logged and re-signaled as a
// uniform execution failure wrapping the original cause.
func invokeUnit(
	ctx context.Context,
	handler slog.Handler,
	unit platform.Unit,
	sc *execctx.Context,
) (platform.Unit, error) {
	_, logger := helpers.SetupLogger(handler, "engine", "invoke")

	if sc == nil {
		return nil, fmt.Errorf("execution context is nil")
	}
	if err := sc.SetAttribute(constants.Context, sc, execctx.EngineScope); err != nil {
		return nil, fmt.Errorf("failed to inject context attribute: %w", err)
	}

	if unit == nil {
		return nil, nil
	}

	if setter, ok := unit.ContextSetter(); ok {
		if err := setter(ctx, sc); err != nil {
			logger.ErrorContext(ctx, "context setter failed", "unit", unit.Name(), "error", err)
			return nil, fmt.Errorf("%w: context setter of %q: %w",
				platform.ErrExecutionFailed, unit.Name(), err)
		}
	}

	if entry, ok := unit.Entry(); ok {
		args := sc.Arguments()
		if err := entry(ctx, args); err != nil {
			logger.ErrorContext(ctx, "entry invocation failed", "unit", unit.Name(), "error", err)
			return nil, fmt.Errorf("%w: entry of %q: %w",
				platform.ErrExecutionFailed, unit.Name(), err)
		}
	}

	return unit, nil
}

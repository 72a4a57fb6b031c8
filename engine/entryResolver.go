package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
)

// resolveEntry selects the unit to treat as the program.
//
// With an explicit entry name, only that unit is considered; it is resolved
// through the loader (so it may come from the parent namespace) and must
// carry a qualifying entry signature.
//
// Without one, the loaded units are scanned in store order, public units
// first and the rest only when no public unit qualifies. When nothing
// qualifies the first loaded unit is returned anyway, supporting
// load-as-library usage. An empty set resolves to nil without error.
func resolveEntry(
	ctx context.Context,
	handler slog.Handler,
	ldr *isolatedLoader,
	explicitName string,
) (platform.Unit, error) {
	_, logger := helpers.SetupLogger(handler, "engine", "entryResolver")

	if explicitName != "" {
		unit, err := ldr.Load(ctx, explicitName)
		if err != nil {
			return nil, err
		}
		if _, ok := unit.Entry(); !ok {
			return nil, fmt.Errorf("%w in %q", platform.ErrNoEntryPoint, explicitName)
		}
		return unit, nil
	}

	units, err := ldr.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, unit := range units {
		if !unit.Public() {
			continue
		}
		if _, ok := unit.Entry(); ok {
			return unit, nil
		}
	}
	for _, unit := range units {
		if _, ok := unit.Entry(); ok {
			return unit, nil
		}
	}

	if len(units) > 0 {
		logger.WarnContext(ctx, "no unit carries an entry signature, falling back to first loaded unit",
			"unit", units[0].Name())
		return units[0], nil
	}
	return nil, nil
}

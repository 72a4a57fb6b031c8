package risor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/execctx"
)

// Unit is a linked Risor script. The whole module body is its entry point,
// so every unit qualifies as an entry candidate. The context-setter stashes
// the execution context's attributes, published to the script as the ctx
// global on the next entry run.
type Unit struct {
	name string
	code *risorCompiler.Code

	mu       sync.Mutex
	ctxAttrs map[string]any

	logHandler slog.Handler
	logger     *slog.Logger
}

func newUnit(handler slog.Handler, name string, code *risorCompiler.Code) *Unit {
	handler, logger := helpers.SetupLogger(handler, backendName, "Unit")
	return &Unit{
		name:       name,
		code:       code,
		logHandler: handler,
		logger:     logger,
	}
}

func (u *Unit) Name() string {
	return u.name
}

func (u *Unit) Public() bool {
	return platform.PublicName(u.name)
}

func (u *Unit) String() string {
	return fmt.Sprintf("risor.Unit{name: %s}", u.name)
}

// ContextSetter records the context's merged attributes for the next run.
func (u *Unit) ContextSetter() (platform.ContextSetterFunc, bool) {
	setter := func(ctx context.Context, sc *execctx.Context) error {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.ctxAttrs = sanitizeAttrs(sc.Attributes())
		return nil
	}
	return setter, true
}

// Entry evaluates the module body with ctx and args globals bound.
func (u *Unit) Entry() (platform.EntryFunc, bool) {
	entry := func(ctx context.Context, args []string) error {
		u.mu.Lock()
		attrs := u.ctxAttrs
		u.mu.Unlock()
		if attrs == nil {
			attrs = make(map[string]any)
		}

		argValues := make([]any, len(args))
		for i, arg := range args {
			argValues[i] = arg
		}

		result, err := risorLib.EvalCode(ctx, u.code,
			risorLib.WithGlobal(ctxGlobal, attrs),
			risorLib.WithGlobal(argsGlobal, argValues),
		)
		if err != nil {
			return fmt.Errorf("body of %q: %w", u.name, err)
		}
		if result != nil && result.Type() == "error" {
			return fmt.Errorf("body of %q: error returned: %s", u.name, result.Inspect())
		}
		u.logger.DebugContext(ctx, "entry complete", "unit", u.name)
		return nil
	}
	return entry, true
}

package extism

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/execctx"
)

// Unit is a linked WASM module with a persistent plugin instance. Calls
// cross the boundary as JSON: the entry receives {"args": [...]}, the
// context-setter the context's merged attributes.
type Unit struct {
	name     string
	plugin   CompiledPlugin
	instance PluginInstance

	mu     sync.Mutex
	closed bool

	logHandler slog.Handler
	logger     *slog.Logger
}

func newUnit(
	handler slog.Handler,
	name string,
	plugin CompiledPlugin,
	instance PluginInstance,
) *Unit {
	handler, logger := helpers.SetupLogger(handler, backendName, "Unit")
	return &Unit{
		name:       name,
		plugin:     plugin,
		instance:   instance,
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
	return fmt.Sprintf("extism.Unit{name: %s}", u.name)
}

// Entry reports the exported main function, when present.
func (u *Unit) Entry() (platform.EntryFunc, bool) {
	if !u.instance.FunctionExists(entryFuncName) {
		return nil, false
	}

	entry := func(ctx context.Context, args []string) error {
		input, err := json.Marshal(map[string]any{"args": args})
		if err != nil {
			return fmt.Errorf("encoding arguments for %q: %w", u.name, err)
		}
		return u.call(ctx, entryFuncName, input)
	}
	return entry, true
}

// ContextSetter reports the exported set_context function, when present.
func (u *Unit) ContextSetter() (platform.ContextSetterFunc, bool) {
	if !u.instance.FunctionExists(setterFuncName) {
		return nil, false
	}

	setter := func(ctx context.Context, sc *execctx.Context) error {
		input, err := json.Marshal(jsonAttrs(sc.Attributes()))
		if err != nil {
			return fmt.Errorf("encoding context for %q: %w", u.name, err)
		}
		return u.call(ctx, setterFuncName, input)
	}
	return setter, true
}

// call invokes an exported function on the persistent instance. The
// instance is single-threaded, so calls serialize on the unit mutex.
func (u *Unit) call(ctx context.Context, fnName string, input []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return fmt.Errorf("%s of %q: %w", fnName, u.name, ErrUnitClosed)
	}

	exit, output, err := u.instance.CallWithContext(ctx, fnName, input)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s of %q cancelled: %w", fnName, u.name, ctx.Err())
		}
		return fmt.Errorf("%s of %q: %w", fnName, u.name, err)
	}
	if exit != 0 {
		return fmt.Errorf("%s of %q: non-zero exit code %d", fnName, u.name, exit)
	}

	u.logger.DebugContext(ctx, "call complete",
		"unit", u.name,
		"function", fnName,
		"outputBytes", len(output),
	)
	return nil
}

// Close releases the instance and the compiled plugin. Safe to call more
// than once.
func (u *Unit) Close(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true

	instErr := u.instance.Close(ctx)
	pluginErr := u.plugin.Close(ctx)
	if instErr != nil {
		return instErr
	}
	return pluginErr
}

// jsonAttrs deep-copies attribute data into JSON-encodable values, falling
// back to string rendering for anything else.
func jsonAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int, int64, float64, string:
		return val
	case []byte:
		// encoding/json renders byte slices as base64 strings
		return val
	case []string:
		return val
	case []any:
		elements := make([]any, len(val))
		for i, elem := range val {
			elements[i] = jsonValue(elem)
		}
		return elements
	case map[string]any:
		return jsonAttrs(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

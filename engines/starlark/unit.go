package starlark

import (
	"context"
	"fmt"
	"log/slog"

	starlarkLib "go.starlark.net/starlark"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/execctx"
)

// Unit is a linked Starlark module. Its entry capability is a global
// function named main that accepts the argument vector; its context-setter
// capability is a global function named set_context.
type Unit struct {
	name    string
	globals starlarkLib.StringDict

	logHandler slog.Handler
	logger     *slog.Logger
}

func newUnit(handler slog.Handler, name string, globals starlarkLib.StringDict) *Unit {
	handler, logger := helpers.SetupLogger(handler, backendName, "Unit")
	return &Unit{
		name:       name,
		globals:    globals,
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
	return fmt.Sprintf("starlark.Unit{name: %s}", u.name)
}

// Entry reports the main function, when the module declares one that can
// take the argument vector.
func (u *Unit) Entry() (platform.EntryFunc, bool) {
	fn, ok := u.globals[entryFuncName].(*starlarkLib.Function)
	if !ok {
		return nil, false
	}
	if fn.NumParams() < 1 && !fn.HasVarargs() {
		return nil, false
	}

	entry := func(ctx context.Context, args []string) error {
		_, err := u.call(ctx, fn, starlarkLib.Tuple{argsToList(args)})
		if err != nil {
			return fmt.Errorf("main of %q: %w", u.name, err)
		}
		return nil
	}
	return entry, true
}

// ContextSetter reports the set_context function, when declared. The
// execution context is passed as a dict of its merged attributes.
func (u *Unit) ContextSetter() (platform.ContextSetterFunc, bool) {
	fn, ok := u.globals[setterFuncName].(*starlarkLib.Function)
	if !ok {
		return nil, false
	}

	setter := func(ctx context.Context, sc *execctx.Context) error {
		dict := convertToStarlarkDict(sc.Attributes())
		_, err := u.call(ctx, fn, starlarkLib.Tuple{dict})
		if err != nil {
			return fmt.Errorf("set_context of %q: %w", u.name, err)
		}
		return nil
	}
	return setter, true
}

// call invokes a module function on a fresh thread, canceled when ctx is.
func (u *Unit) call(
	ctx context.Context,
	fn *starlarkLib.Function,
	args starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	thread := &starlarkLib.Thread{
		Name: u.name,
		Print: func(thread *starlarkLib.Thread, msg string) {
			u.logger.Info(msg, "starlark-thread", thread.Name)
		},
	}
	thread.SetLocal(ctxLocalKey, ctx)

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	return starlarkLib.Call(thread, fn, args, nil)
}

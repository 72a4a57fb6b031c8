// Package starlark implements the Starlark backend: sources compile to
// serialized Starlark programs, and linking initializes each program as a
// module over the standard universe.
package starlark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.starlark.net/resolve"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/diag"
)

const (
	backendName   = "starlark"
	fileExtension = ".star"

	// entryFuncName is the global probed for the entry signature: a function
	// taking the argument vector as its parameter.
	entryFuncName = "main"

	// setterFuncName is the global probed for the context-setter signature.
	setterFuncName = "set_context"

	// ctxLocalKey carries the Go context through a Starlark thread, so load
	// callbacks can delegate lookups with it.
	ctxLocalKey = "dynrun.context"
)

// Backend compiles and links Starlark modules. Multiple source units per
// compile are supported, one artifact per module; modules may reference
// each other with load(), resolved store-first through the namespace they
// are loaded into.
type Backend struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Starlark backend.
func New(handler slog.Handler) *Backend {
	handler, logger := helpers.SetupLogger(handler, backendName, "Backend")
	return &Backend{
		logHandler: handler,
		logger:     logger,
	}
}

func (b *Backend) Name() string {
	return backendName
}

func (b *Backend) FileExtension() string {
	return fileExtension
}

func (b *Backend) String() string {
	return "starlark.Backend"
}

// Compile parses and compiles every source unit into a serialized program
// artifact. On failure every diagnostic is rendered, in order, to the
// request's sink and no artifact set is returned.
func (b *Backend) Compile(
	ctx context.Context,
	req platform.CompileRequest,
) (*artifact.Set, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no source units", platform.ErrCompileFailed)
	}

	set := artifact.NewSet()
	predeclared := standardModules()

	for _, src := range req.Sources {
		if len(src.Text) == 0 {
			return nil, fmt.Errorf("%w: %w", platform.ErrCompileFailed, ErrContentNil)
		}

		prog, err := b.compileOne(src.Name, src.Text, predeclared)
		if err != nil {
			diags := toDiagnostics(src.Name, err)
			diag.Render(req.Diagnostics, diags)
			b.logger.WarnContext(ctx, "compilation failed", "file", src.Name, "error", err)
			return nil, fmt.Errorf("%w: %s", platform.ErrCompileFailed, src.Name)
		}

		var payload bytes.Buffer
		if err := prog.Write(&payload); err != nil {
			return nil, fmt.Errorf("failed to serialize program %q: %w", src.Name, err)
		}
		if err := set.Put(unitName(src.Name), payload.Bytes()); err != nil {
			return nil, err
		}
	}

	b.logger.DebugContext(ctx, "compilation complete", "artifacts", set.Len())
	return set, nil
}

// compileOne parses and compiles a single module against the standard
// universe.
func (b *Backend) compileOne(
	fileName string,
	text []byte,
	predeclared starlarkLib.StringDict,
) (*starlarkLib.Program, error) {
	opts := &syntax.FileOptions{}

	f, err := opts.Parse(fileName, text, 0)
	if err != nil {
		return nil, err
	}

	prog, err := starlarkLib.FileProgram(f, predeclared.Has)
	if err != nil {
		return nil, err
	}
	if prog == nil {
		return nil, ErrBytecodeNil
	}
	return prog, nil
}

// Link decodes a serialized program and initializes it as a module. The
// module's top-level statements execute here, the analogue of static
// initialization; load() statements resolve through ns.
func (b *Backend) Link(
	ctx context.Context,
	name string,
	payload []byte,
	ns platform.Namespace,
) (platform.Unit, error) {
	prog, err := starlarkLib.CompiledProgram(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %w", platform.ErrLinkFailed, name, err)
	}

	thread := b.newThread(ctx, name, ns)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	globals, err := prog.Init(thread, standardModules())
	if err != nil {
		return nil, fmt.Errorf("%w: initializing %q: %w", platform.ErrLinkFailed, name, err)
	}
	globals.Freeze()

	return newUnit(b.logHandler, name, globals), nil
}

// newThread builds a Starlark thread whose load callback delegates through
// the namespace and whose prints go to the backend logger.
func (b *Backend) newThread(ctx context.Context, name string, ns platform.Namespace) *starlarkLib.Thread {
	thread := &starlarkLib.Thread{
		Name: name,
		Print: func(thread *starlarkLib.Thread, msg string) {
			b.logger.Info(msg, "starlark-thread", thread.Name)
		},
		Load: func(thread *starlarkLib.Thread, module string) (starlarkLib.StringDict, error) {
			return b.loadModule(thread, ns, module)
		},
	}
	thread.SetLocal(ctxLocalKey, ctx)
	return thread
}

// loadModule resolves a load() target through the namespace. The loaded
// unit must itself be a Starlark module.
func (b *Backend) loadModule(
	thread *starlarkLib.Thread,
	ns platform.Namespace,
	module string,
) (starlarkLib.StringDict, error) {
	if ns == nil {
		return nil, fmt.Errorf("%w: %q", platform.ErrUnitNotFound, module)
	}
	ctx := context.Background()
	if local, ok := thread.Local(ctxLocalKey).(context.Context); ok {
		ctx = local
	}

	target, err := ns.Lookup(ctx, unitName(module))
	if err != nil {
		return nil, err
	}
	loaded, ok := target.(*Unit)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a starlark module", platform.ErrLinkFailed, module)
	}
	return loaded.globals, nil
}

// unitName derives an artifact name from a logical file name.
func unitName(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), fileExtension)
}

// toDiagnostics converts parse and resolve errors into ordered diagnostics.
func toDiagnostics(fileName string, err error) []diag.Diagnostic {
	var el resolve.ErrorList
	if errors.As(err, &el) {
		diags := make([]diag.Diagnostic, 0, len(el))
		for _, e := range el {
			diags = append(diags, diag.Diagnostic{
				Severity: diag.Error,
				Message:  e.Msg,
				File:     e.Pos.Filename(),
				Line:     int(e.Pos.Line),
				Col:      int(e.Pos.Col),
			})
		}
		return diags
	}

	var se syntax.Error
	if errors.As(err, &se) {
		return []diag.Diagnostic{{
			Severity: diag.Error,
			Message:  se.Msg,
			File:     se.Pos.Filename(),
			Line:     int(se.Pos.Line),
			Col:      int(se.Pos.Col),
		}}
	}

	return []diag.Diagnostic{{
		Severity: diag.Error,
		Message:  err.Error(),
		File:     fileName,
	}}
}

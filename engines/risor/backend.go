// Package risor implements the Risor backend. A Risor unit is a single
// script whose module body is its entry point; the execution context and
// argument vector are injected as the ctx and args globals.
package risor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	risorErrors "github.com/risor-io/risor/errz"
	risorParser "github.com/risor-io/risor/parser"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/diag"
)

const (
	backendName   = "risor"
	fileExtension = ".risor"

	// ctxGlobal is the variable name scripts use to access context data.
	ctxGlobal = "ctx"

	// argsGlobal is the variable name scripts use to access the argument
	// vector.
	argsGlobal = "args"
)

// Backend compiles and links Risor scripts. Risor bytecode has no stable
// serialized form, so artifacts carry the validated source and linking
// compiles it again.
type Backend struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Risor backend.
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
	return "risor.Backend"
}

// Compile validates every source unit by compiling it against the default
// globals plus ctx and args. Failures are rendered to the request's
// diagnostic sink.
func (b *Backend) Compile(
	ctx context.Context,
	req platform.CompileRequest,
) (*artifact.Set, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no source units", platform.ErrCompileFailed)
	}

	set := artifact.NewSet()
	for _, src := range req.Sources {
		if _, err := compileSource(ctx, src.Text); err != nil {
			diag.Render(req.Diagnostics, []diag.Diagnostic{{
				Severity: diag.Error,
				Message:  friendlyMessage(err),
				File:     src.Name,
			}})
			b.logger.WarnContext(ctx, "compilation failed", "file", src.Name, "error", err)
			return nil, fmt.Errorf("%w: %s", platform.ErrCompileFailed, src.Name)
		}
		if err := set.Put(unitName(src.Name), src.Text); err != nil {
			return nil, err
		}
	}

	b.logger.DebugContext(ctx, "compilation complete", "artifacts", set.Len())
	return set, nil
}

// Link compiles the stored source into bytecode and wraps it as a unit.
// Risor scripts have no import mechanism, so the namespace is unused.
func (b *Backend) Link(
	ctx context.Context,
	name string,
	payload []byte,
	_ platform.Namespace,
) (platform.Unit, error) {
	code, err := compileSource(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", platform.ErrLinkFailed, name, err)
	}
	return newUnit(b.logHandler, name, code), nil
}

// compileSource parses and compiles script text, rejecting scripts that
// produce no instructions.
func compileSource(ctx context.Context, text []byte) (*risorCompiler.Code, error) {
	if len(text) == 0 {
		return nil, ErrContentNil
	}
	if isCommentOnly(string(text)) {
		return nil, ErrNoInstructions
	}

	ast, err := risorParser.Parse(ctx, string(text))
	if err != nil {
		return nil, err
	}

	cfg := risorLib.NewConfig()
	globalNames := append(cfg.GlobalNames(), ctxGlobal, argsGlobal)

	code, err := risorCompiler.Compile(ast, risorCompiler.WithGlobalNames(globalNames))
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, ErrBytecodeNil
	}
	if code.InstructionCount() < 1 {
		return nil, ErrNoInstructions
	}
	return code, nil
}

// isCommentOnly reports whether the script contains no executable lines.
func isCommentOnly(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return false
		}
	}
	return true
}

// friendlyMessage prefers Risor's formatted error output when available.
func friendlyMessage(err error) string {
	var friendly risorErrors.FriendlyError
	if errors.As(err, &friendly) {
		return friendly.FriendlyErrorMessage()
	}
	return err.Error()
}

// unitName derives an artifact name from a logical file name.
func unitName(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), fileExtension)
}

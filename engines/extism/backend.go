// Package extism implements the WASM backend on the Extism SDK. Sources may
// be raw WASM binaries or their base64 encoding; a unit's entry point is an
// exported main function, its context-setter an exported set_context
// function, both crossing the boundary as JSON.
package extism

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"

	"github.com/dynrun/dynrun/internal/helpers"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/diag"
)

const (
	backendName   = "extism"
	fileExtension = ".wasm"

	// entryFuncName is the export probed for the entry capability.
	entryFuncName = "main"

	// setterFuncName is the export probed for the context-setter capability.
	setterFuncName = "set_context"
)

// wasmMagic is the leading bytes of every WASM binary.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Settings holds WASM runtime configuration shared by compilation checks
// and linking.
type Settings struct {
	EnableWASI    bool
	RuntimeConfig wazero.RuntimeConfig
	HostFunctions []extismSDK.HostFunction
}

func defaultSettings() *Settings {
	return &Settings{
		EnableWASI:    true,
		RuntimeConfig: wazero.NewRuntimeConfig(),
	}
}

// Backend compiles and links WASM modules through Extism. Compilation is a
// validation pass, the artifact payload is the decoded binary, and linking
// builds the plugin the unit executes on.
type Backend struct {
	settings *Settings

	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates an Extism backend with default runtime settings.
func New(handler slog.Handler) *Backend {
	return NewWithSettings(handler, defaultSettings())
}

// NewWithSettings creates an Extism backend with explicit runtime settings.
func NewWithSettings(handler slog.Handler, settings *Settings) *Backend {
	handler, logger := helpers.SetupLogger(handler, backendName, "Backend")
	if settings == nil {
		settings = defaultSettings()
	}
	return &Backend{
		settings:   settings,
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
	return "extism.Backend"
}

// Compile decodes and validates every source unit by compiling it in the
// WASM runtime. The artifact payload is the decoded binary.
func (b *Backend) Compile(
	ctx context.Context,
	req platform.CompileRequest,
) (*artifact.Set, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no source units", platform.ErrCompileFailed)
	}

	set := artifact.NewSet()
	for _, src := range req.Sources {
		wasmBytes, err := decodeWasm(src.Text)
		if err == nil {
			err = b.validate(ctx, wasmBytes)
		}
		if err != nil {
			diag.Render(req.Diagnostics, []diag.Diagnostic{{
				Severity: diag.Error,
				Message:  err.Error(),
				File:     src.Name,
			}})
			b.logger.WarnContext(ctx, "compilation failed", "file", src.Name, "error", err)
			return nil, fmt.Errorf("%w: %s", platform.ErrCompileFailed, src.Name)
		}
		if err := set.Put(unitName(src.Name), wasmBytes); err != nil {
			return nil, err
		}
	}

	b.logger.DebugContext(ctx, "compilation complete", "artifacts", set.Len())
	return set, nil
}

// validate compiles the binary and discards the result.
func (b *Backend) validate(ctx context.Context, wasmBytes []byte) error {
	plugin, err := b.compilePlugin(ctx, wasmBytes)
	if err != nil {
		return err
	}
	return plugin.Close(ctx)
}

// Link compiles the stored binary into a plugin and probes its exports.
// WASM modules resolve imports through host functions, not the namespace.
func (b *Backend) Link(
	ctx context.Context,
	name string,
	payload []byte,
	_ platform.Namespace,
) (platform.Unit, error) {
	plugin, err := b.compilePlugin(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", platform.ErrLinkFailed, name, err)
	}

	instance, err := plugin.Instance(ctx, extismSDK.PluginInstanceConfig{
		ModuleConfig: wazero.NewModuleConfig(),
	})
	if err != nil {
		closeErr := plugin.Close(ctx)
		if closeErr != nil {
			b.logger.WarnContext(ctx, "failed to close plugin", "error", closeErr)
		}
		return nil, fmt.Errorf("%w: instantiating %q: %w", platform.ErrLinkFailed, name, err)
	}

	return newUnit(b.logHandler, name, plugin, instance), nil
}

func (b *Backend) compilePlugin(ctx context.Context, wasmBytes []byte) (CompiledPlugin, error) {
	if len(wasmBytes) == 0 {
		return nil, ErrContentNil
	}

	manifest := extismSDK.Manifest{
		Wasm: []extismSDK.Wasm{
			extismSDK.WasmData{Data: wasmBytes},
		},
	}
	config := extismSDK.PluginConfig{
		EnableWasi:    b.settings.EnableWASI,
		RuntimeConfig: b.settings.RuntimeConfig,
	}

	plugin, err := extismSDK.NewCompiledPlugin(ctx, manifest, config, b.settings.HostFunctions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBinary, err)
	}
	return newCompiledPluginAdapter(plugin), nil
}

// decodeWasm accepts either a raw WASM binary or its base64 encoding.
func decodeWasm(text []byte) ([]byte, error) {
	if len(text) == 0 {
		return nil, ErrContentNil
	}
	if bytes.HasPrefix(text, wasmMagic) {
		return text, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a binary and not base64: %w", ErrInvalidBinary, err)
	}
	if !bytes.HasPrefix(decoded, wasmMagic) {
		return nil, fmt.Errorf("%w: decoded content has no wasm magic", ErrInvalidBinary)
	}
	return decoded, nil
}

// unitName derives an artifact name from a logical file name.
func unitName(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), fileExtension)
}

package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
	"github.com/dynrun/dynrun/platform/constants"
	"github.com/dynrun/dynrun/platform/data"
	"github.com/dynrun/dynrun/platform/diag"
	"github.com/dynrun/dynrun/platform/execctx"
	"github.com/dynrun/dynrun/platform/script/loader"
)

func newStringLoader(t *testing.T, content string) loader.Loader {
	t.Helper()
	ld, err := loader.NewFromString(content)
	require.NoError(t, err)
	return ld
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{})
		require.NoError(t, err)
		assert.NotNil(t, eng.Backend())
	})

	t.Run("nil backend rejected", func(t *testing.T) {
		t.Parallel()
		_, err := New(nil, nil, nil, Defaults{})
		assert.Error(t, err)
	})
}

func TestEngine_Compile(t *testing.T) {
	t.Parallel()

	t.Run("derives the unit ID from the source checksum", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{})
		require.NoError(t, err)

		first, err := eng.Compile(t.Context(), nil, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Len(t, first.ID, 12)

		same, err := eng.Compile(t.Context(), nil, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, same.ID)

		different, err := eng.Compile(t.Context(), nil, newStringLoader(t, "x = 2"))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, different.ID)
	})

	t.Run("unnamed source gets the placeholder file name", func(t *testing.T) {
		t.Parallel()
		var compiledName string
		backend := &fakeBackend{
			compileFn: func(_ context.Context, req platform.CompileRequest) (*artifact.Set, error) {
				compiledName = req.Sources[0].Name
				return artifact.NewSet(), nil
			},
		}
		eng, err := New(nil, backend, nil, Defaults{})
		require.NoError(t, err)

		_, err = eng.Compile(t.Context(), nil, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Equal(t, "$unnamed.fake", compiledName)
	})

	t.Run("filename attribute names the source", func(t *testing.T) {
		t.Parallel()
		var compiledName string
		backend := &fakeBackend{
			compileFn: func(_ context.Context, req platform.CompileRequest) (*artifact.Set, error) {
				compiledName = req.Sources[0].Name
				return artifact.NewSet(), nil
			},
		}
		eng, err := New(nil, backend, nil, Defaults{})
		require.NoError(t, err)

		sc := execctx.New()
		require.NoError(t, sc.SetAttribute(constants.Filename, "script.fake", execctx.EngineScope))

		_, err = eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Equal(t, "script.fake", compiledName)
	})

	t.Run("logs the loader source URL", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
		eng, err := New(handler, &fakeBackend{}, nil, Defaults{})
		require.NoError(t, err)

		ld := newStringLoader(t, "x = 1")
		_, err = eng.Compile(t.Context(), nil, ld)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), ld.GetSourceURL().String())
	})
}

func TestEngine_SearchConfig(t *testing.T) {
	t.Parallel()

	t.Run("context attributes override engine defaults", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{
			SourcePath: "/default/src",
			ClassPath:  "",
			EntryName:  "default-entry",
		})
		require.NoError(t, err)

		sc := execctx.New()
		require.NoError(t, sc.SetAttribute(constants.SourcePath, "/attr/src", execctx.EngineScope))
		require.NoError(t, sc.SetAttribute(constants.MainUnit, "attr-entry", execctx.GlobalScope))

		cu, err := eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Equal(t, "/attr/src", cu.Config().SourcePath)
		assert.Equal(t, "attr-entry", cu.Config().EntryName)
	})

	t.Run("defaults apply when attributes are absent", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{EntryName: "default-entry"})
		require.NoError(t, err)

		cu, err := eng.Compile(t.Context(), execctx.New(), newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Equal(t, "default-entry", cu.Config().EntryName)
	})

	t.Run("parent namespace attribute is honored", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{})
		require.NoError(t, err)

		parent := NewMapNamespace(nil)
		sc := execctx.New()
		require.NoError(t, sc.SetAttribute(constants.ParentNamespace, parent, execctx.EngineScope))

		cu, err := eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Same(t, platform.Namespace(parent), cu.Config().Parent)
	})

	t.Run("parent namespace attribute of the wrong type is ignored", func(t *testing.T) {
		t.Parallel()
		fallback := NewMapNamespace(nil)
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{Parent: fallback})
		require.NoError(t, err)

		sc := execctx.New()
		require.NoError(t, sc.SetAttribute(constants.ParentNamespace, "not-a-namespace", execctx.EngineScope))

		cu, err := eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.Same(t, platform.Namespace(fallback), cu.Config().Parent)
	})

	t.Run("class path layers behind the parent", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{})
		require.NoError(t, err)

		sc := execctx.New()
		require.NoError(t, sc.SetAttribute(constants.ClassPath, t.TempDir(), execctx.EngineScope))

		cu, err := eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)
		assert.IsType(t, &CompositeNamespace{}, cu.Config().Parent)
	})
}

func TestEngine_CompileDiagnostics(t *testing.T) {
	t.Parallel()

	failingBackend := func() *fakeBackend {
		return &fakeBackend{
			compileFn: func(_ context.Context, req platform.CompileRequest) (*artifact.Set, error) {
				diag.Render(req.Diagnostics, []diag.Diagnostic{{
					Severity: diag.Error,
					Message:  "unexpected token",
					File:     req.Sources[0].Name,
					Line:     2,
				}})
				return nil, fmt.Errorf("%w: %s", platform.ErrCompileFailed, req.Sources[0].Name)
			},
		}
	}

	t.Run("captured diagnostics surface inside the failure", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, failingBackend(), nil, Defaults{})
		require.NoError(t, err)

		_, err = eng.Compile(t.Context(), execctx.New(), newStringLoader(t, "x ="))
		require.ErrorIs(t, err, platform.ErrCompileFailed)
		assert.Contains(t, err.Error(), "unexpected token")
	})

	t.Run("a configured sink receives the diagnostics instead", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, failingBackend(), nil, Defaults{})
		require.NoError(t, err)

		var sink strings.Builder
		sc := execctx.New()
		sc.SetErrorWriter(&sink)

		_, err = eng.Compile(t.Context(), sc, newStringLoader(t, "x ="))
		require.ErrorIs(t, err, platform.ErrCompileFailed)
		assert.Contains(t, sink.String(), "unexpected token")
		assert.NotContains(t, err.Error(), "unexpected token")
	})
}

func TestEngine_SeedAttributes(t *testing.T) {
	t.Parallel()

	t.Run("provider data lands in the engine scope", func(t *testing.T) {
		t.Parallel()
		provider := data.NewStaticProvider(map[string]any{"seeded": "value"})
		eng, err := New(nil, &fakeBackend{}, provider, Defaults{})
		require.NoError(t, err)

		sc := execctx.New()
		_, err = eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)

		value, ok := sc.GetAttributeIn("seeded", execctx.EngineScope)
		require.True(t, ok)
		assert.Equal(t, "value", value)
	})

	t.Run("existing attributes win over provider data", func(t *testing.T) {
		t.Parallel()
		provider := data.NewStaticProvider(map[string]any{"key": "from-provider"})
		eng, err := New(nil, &fakeBackend{}, provider, Defaults{})
		require.NoError(t, err)

		sc := execctx.New()
		require.NoError(t, sc.SetAttribute("key", "caller-set", execctx.GlobalScope))

		_, err = eng.Compile(t.Context(), sc, newStringLoader(t, "x = 1"))
		require.NoError(t, err)

		value, ok := sc.GetAttribute("key")
		require.True(t, ok)
		assert.Equal(t, "caller-set", value)
	})
}

func TestEngine_Eval(t *testing.T) {
	t.Parallel()

	t.Run("one-shot evaluation resolves and invokes", func(t *testing.T) {
		t.Parallel()
		eng, err := New(nil, &fakeBackend{}, nil, Defaults{})
		require.NoError(t, err)

		sc := execctx.New()
		unit, err := eng.Eval(t.Context(), sc, newStringLoader(t, "body"))
		require.NoError(t, err)
		require.NotNil(t, unit)
		assert.Equal(t, "$unnamed", unit.Name())

		value, ok := sc.GetAttributeIn(constants.Context, execctx.EngineScope)
		require.True(t, ok)
		assert.Same(t, sc, value)
	})

	t.Run("empty compilation yields no unit and no error", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			compileFn: func(context.Context, platform.CompileRequest) (*artifact.Set, error) {
				return artifact.NewSet(), nil
			},
		}
		eng, err := New(nil, backend, nil, Defaults{})
		require.NoError(t, err)

		unit, err := eng.Eval(t.Context(), nil, newStringLoader(t, "body"))
		require.NoError(t, err)
		assert.Nil(t, unit)
	})

	t.Run("compile failure propagates", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			compileFn: func(context.Context, platform.CompileRequest) (*artifact.Set, error) {
				return nil, fmt.Errorf("%w: bad input", platform.ErrCompileFailed)
			},
		}
		eng, err := New(nil, backend, nil, Defaults{})
		require.NoError(t, err)

		_, err = eng.Eval(t.Context(), nil, newStringLoader(t, "body"))
		assert.ErrorIs(t, err, platform.ErrCompileFailed)
	})
}

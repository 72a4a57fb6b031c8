package extism

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	extismSDK "github.com/extism/go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrun/dynrun/platform/execctx"
)

// fakeInstance records calls so unit behavior can be tested without a real
// WASM binary.
type fakeInstance struct {
	exports   map[string]bool
	exit      uint32
	callErr   error
	lastFn    string
	lastInput []byte
	closed    bool
}

func (f *fakeInstance) Call(name string, data []byte) (uint32, []byte, error) {
	return f.CallWithContext(context.Background(), name, data)
}

func (f *fakeInstance) CallWithContext(
	_ context.Context,
	name string,
	data []byte,
) (uint32, []byte, error) {
	f.lastFn = name
	f.lastInput = data
	return f.exit, nil, f.callErr
}

func (f *fakeInstance) FunctionExists(name string) bool {
	return f.exports[name]
}

func (f *fakeInstance) Close(context.Context) error {
	f.closed = true
	return nil
}

type fakePlugin struct {
	instance *fakeInstance
	closed   bool
}

func (f *fakePlugin) Instance(
	context.Context,
	extismSDK.PluginInstanceConfig,
) (PluginInstance, error) {
	return f.instance, nil
}

func (f *fakePlugin) Close(context.Context) error {
	f.closed = true
	return nil
}

func newFakeUnit(exports ...string) (*Unit, *fakeInstance, *fakePlugin) {
	instance := &fakeInstance{exports: make(map[string]bool)}
	for _, name := range exports {
		instance.exports[name] = true
	}
	plugin := &fakePlugin{instance: instance}
	return newUnit(nil, "mod", plugin, instance), instance, plugin
}

func TestUnit_CapabilityProbes(t *testing.T) {
	t.Parallel()

	t.Run("both exports", func(t *testing.T) {
		t.Parallel()
		unit, _, _ := newFakeUnit(entryFuncName, setterFuncName)
		_, ok := unit.Entry()
		assert.True(t, ok)
		_, ok = unit.ContextSetter()
		assert.True(t, ok)
	})

	t.Run("no exports", func(t *testing.T) {
		t.Parallel()
		unit, _, _ := newFakeUnit()
		_, ok := unit.Entry()
		assert.False(t, ok)
		_, ok = unit.ContextSetter()
		assert.False(t, ok)
	})
}

func TestUnit_EntryCall(t *testing.T) {
	t.Parallel()

	t.Run("arguments cross as JSON", func(t *testing.T) {
		t.Parallel()
		unit, instance, _ := newFakeUnit(entryFuncName)
		entry, ok := unit.Entry()
		require.True(t, ok)

		require.NoError(t, entry(t.Context(), []string{"one", "two"}))
		assert.Equal(t, entryFuncName, instance.lastFn)

		var input map[string][]string
		require.NoError(t, json.Unmarshal(instance.lastInput, &input))
		assert.Equal(t, []string{"one", "two"}, input["args"])
	})

	t.Run("non-zero exit code fails", func(t *testing.T) {
		t.Parallel()
		unit, instance, _ := newFakeUnit(entryFuncName)
		instance.exit = 3

		entry, ok := unit.Entry()
		require.True(t, ok)
		err := entry(t.Context(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exit code 3")
	})

	t.Run("call failure propagates", func(t *testing.T) {
		t.Parallel()
		unit, instance, _ := newFakeUnit(entryFuncName)
		instance.callErr = errors.New("trap")

		entry, ok := unit.Entry()
		require.True(t, ok)
		assert.ErrorContains(t, entry(t.Context(), nil), "trap")
	})
}

func TestUnit_SetterCall(t *testing.T) {
	t.Parallel()

	unit, instance, _ := newFakeUnit(setterFuncName)
	setter, ok := unit.ContextSetter()
	require.True(t, ok)

	sc := execctx.New()
	require.NoError(t, sc.SetAttribute("marker", "present", execctx.EngineScope))
	require.NoError(t, sc.SetAttribute("raw", []byte{0xDE, 0xAD}, execctx.EngineScope))
	require.NoError(t, sc.SetAttribute("opaque", struct{ X int }{X: 1}, execctx.GlobalScope))

	require.NoError(t, setter(t.Context(), sc))
	assert.Equal(t, setterFuncName, instance.lastFn)

	var input map[string]any
	require.NoError(t, json.Unmarshal(instance.lastInput, &input))
	assert.Equal(t, "present", input["marker"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xDE, 0xAD}), input["raw"],
		"byte slices cross the boundary as base64 strings")
	assert.IsType(t, "", input["opaque"], "opaque values fall back to strings")
}

func TestUnit_Close(t *testing.T) {
	t.Parallel()

	unit, instance, plugin := newFakeUnit(entryFuncName)
	require.NoError(t, unit.Close(t.Context()))
	assert.True(t, instance.closed)
	assert.True(t, plugin.closed)

	require.NoError(t, unit.Close(t.Context()), "second close is a no-op")

	entry, ok := unit.Entry()
	require.True(t, ok)
	assert.ErrorIs(t, entry(t.Context(), nil), ErrUnitClosed)
}

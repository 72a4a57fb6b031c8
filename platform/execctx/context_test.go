package execctx

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrun/dynrun/platform/constants"
)

func TestContext_SetAndGetAttribute(t *testing.T) {
	t.Parallel()

	t.Run("engine scope shadows global scope", func(t *testing.T) {
		t.Parallel()
		c := New()
		require.NoError(t, c.SetAttribute("key", "global-value", GlobalScope))
		require.NoError(t, c.SetAttribute("key", "engine-value", EngineScope))

		value, ok := c.GetAttribute("key")
		require.True(t, ok)
		assert.Equal(t, "engine-value", value)

		scope, ok := c.ScopeOf("key")
		require.True(t, ok)
		assert.Equal(t, EngineScope, scope)
	})

	t.Run("global scope visible when engine scope misses", func(t *testing.T) {
		t.Parallel()
		c := New()
		require.NoError(t, c.SetAttribute("key", 42, GlobalScope))

		value, ok := c.GetAttribute("key")
		require.True(t, ok)
		assert.Equal(t, 42, value)
	})

	t.Run("absent attribute", func(t *testing.T) {
		t.Parallel()
		c := New()
		_, ok := c.GetAttribute("missing")
		assert.False(t, ok)
		_, ok = c.ScopeOf("missing")
		assert.False(t, ok)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		t.Parallel()
		c := New()
		assert.Error(t, c.SetAttribute("", "value", EngineScope))
	})

	t.Run("invalid scope rejected", func(t *testing.T) {
		t.Parallel()
		c := New()
		assert.Error(t, c.SetAttribute("key", "value", Scope(999)))
	})
}

func TestContext_GetAttributeIn(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.SetAttribute("key", "engine-value", EngineScope))

	_, ok := c.GetAttributeIn("key", GlobalScope)
	assert.False(t, ok, "scoped read must not consult other scopes")

	value, ok := c.GetAttributeIn("key", EngineScope)
	require.True(t, ok)
	assert.Equal(t, "engine-value", value)
}

func TestContext_RemoveAttribute(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.SetAttribute("key", "engine-value", EngineScope))
	require.NoError(t, c.SetAttribute("key", "global-value", GlobalScope))

	c.RemoveAttribute("key", EngineScope)

	value, ok := c.GetAttribute("key")
	require.True(t, ok, "removal is scoped, global binding survives")
	assert.Equal(t, "global-value", value)

	c.RemoveAttribute("key", GlobalScope)
	_, ok = c.GetAttribute("key")
	assert.False(t, ok)
}

func TestContext_Attributes(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.SetAttribute("shared", "engine", EngineScope))
	require.NoError(t, c.SetAttribute("shared", "global", GlobalScope))
	require.NoError(t, c.SetAttribute("only-global", true, GlobalScope))

	merged := c.Attributes()
	assert.Equal(t, "engine", merged["shared"])
	assert.Equal(t, true, merged["only-global"])
	assert.Len(t, merged, 2)

	// the snapshot is detached from the context
	merged["shared"] = "mutated"
	value, ok := c.GetAttribute("shared")
	require.True(t, ok)
	assert.Equal(t, "engine", value)
}

func TestContext_StringAttribute(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.SetAttribute("str", "hello", EngineScope))
	require.NoError(t, c.SetAttribute("num", 7, EngineScope))

	s, ok := c.StringAttribute("str")
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = c.StringAttribute("num")
	require.True(t, ok, "non-string values stringify")
	assert.Equal(t, "7", s)

	_, ok = c.StringAttribute("missing")
	assert.False(t, ok)
}

func TestContext_Arguments(t *testing.T) {
	t.Parallel()

	t.Run("bound vector", func(t *testing.T) {
		t.Parallel()
		c := New()
		require.NoError(t, c.SetAttribute(constants.Arguments, []string{"a", "b"}, EngineScope))
		assert.Equal(t, []string{"a", "b"}, c.Arguments())
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		c := New()
		assert.Empty(t, c.Arguments())
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()
		c := New()
		require.NoError(t, c.SetAttribute(constants.Arguments, 123, EngineScope))
		assert.Empty(t, c.Arguments())
	})
}

func TestContext_ErrorWriter(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Nil(t, c.ErrorWriter(), "no sink configured by default")

	var sink strings.Builder
	c.SetErrorWriter(&sink)
	assert.Same(t, &sink, c.ErrorWriter())
}

func TestContext_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("key-%d", i%10)
			_ = c.SetAttribute(name, i, EngineScope)
		}()
		go func() {
			defer wg.Done()
			_, _ = c.GetAttribute(fmt.Sprintf("key-%d", i%10))
			_ = c.Attributes()
		}()
	}
	wg.Wait()
}

// Package execctx provides the execution context threaded through every
// pipeline stage: a scoped attribute store, the argument vector, and the
// diagnostic sink.
package execctx

import (
	"fmt"
	"io"
	"sync"

	"github.com/dynrun/dynrun/platform/constants"
)

// Scope identifies one visibility level of the attribute store. Lookup
// consults EngineScope before GlobalScope.
type Scope int

const (
	// EngineScope attributes belong to a single engine/context pairing.
	EngineScope Scope = 100

	// GlobalScope attributes are shared across contexts that reference the
	// same global bindings.
	GlobalScope Scope = 200
)

// lookupOrder is the fixed scope search order for unscoped reads.
var lookupOrder = []Scope{EngineScope, GlobalScope}

// Context is the caller-managed execution context. A fresh context may be
// supplied per invocation, or one context reused across invocations; either
// way the engine injects a back-reference to the context itself under a
// well-known attribute before invoked code runs.
//
// Context is safe for concurrent use.
type Context struct {
	mu        sync.RWMutex
	scopes    map[Scope]map[string]any
	errWriter io.Writer
}

// New returns an empty context with no error writer configured.
func New() *Context {
	return &Context{
		scopes: map[Scope]map[string]any{
			EngineScope: {},
			GlobalScope: {},
		},
	}
}

// SetAttribute stores value under name at the given scope.
func (c *Context) SetAttribute(name string, value any, scope Scope) error {
	if name == "" {
		return fmt.Errorf("attribute name is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bindings, ok := c.scopes[scope]
	if !ok {
		return fmt.Errorf("invalid attribute scope %d", int(scope))
	}
	bindings[name] = value
	return nil
}

// GetAttribute searches the scopes in lookup order and returns the first
// value bound to name.
func (c *Context) GetAttribute(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, scope := range lookupOrder {
		if value, ok := c.scopes[scope][name]; ok {
			return value, true
		}
	}
	return nil, false
}

// GetAttributeIn returns the value bound to name at exactly the given scope.
func (c *Context) GetAttributeIn(name string, scope Scope) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.scopes[scope][name]
	return value, ok
}

// ScopeOf returns the scope that an unscoped lookup of name would hit.
func (c *Context) ScopeOf(name string) (Scope, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, scope := range lookupOrder {
		if _, ok := c.scopes[scope][name]; ok {
			return scope, true
		}
	}
	return 0, false
}

// RemoveAttribute deletes name from the given scope.
func (c *Context) RemoveAttribute(name string, scope Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes[scope], name)
}

// Attributes returns a merged snapshot of all scopes, engine scope winning
// over global on duplicate names. Backends use this to hand the context's
// data to invoked code.
func (c *Context) Attributes() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	merged := make(map[string]any)
	// reverse lookup order, so higher-priority scopes overwrite
	for i := len(lookupOrder) - 1; i >= 0; i-- {
		for name, value := range c.scopes[lookupOrder[i]] {
			merged[name] = value
		}
	}
	return merged
}

// StringAttribute returns the attribute rendered as a string, or ok=false
// when absent. Non-string values stringify via fmt, matching the original
// engine's toString-based option reads.
func (c *Context) StringAttribute(name string) (string, bool) {
	value, ok := c.GetAttribute(name)
	if !ok {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", value), true
}

// Arguments returns the argument vector bound to the arguments attribute, or
// an empty slice when absent or of the wrong type.
func (c *Context) Arguments() []string {
	value, ok := c.GetAttribute(constants.Arguments)
	if !ok {
		return nil
	}
	args, ok := value.([]string)
	if !ok {
		return nil
	}
	return args
}

// ErrorWriter returns the configured diagnostic sink, which may be nil. The
// engine substitutes an internal capture buffer when nil, and surfaces the
// captured text inside compile failures.
func (c *Context) ErrorWriter() io.Writer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errWriter
}

// SetErrorWriter configures the diagnostic sink.
func (c *Context) SetErrorWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errWriter = w
}

func (c *Context) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("execctx.Context{engine: %d, global: %d}",
		len(c.scopes[EngineScope]), len(c.scopes[GlobalScope]))
}

package extism

import (
	"context"

	extismSDK "github.com/extism/go-sdk"
)

// CompiledPlugin abstracts extismSDK.CompiledPlugin so tests can substitute
// plugin behavior without real WASM binaries.
type CompiledPlugin interface {
	Instance(ctx context.Context, config extismSDK.PluginInstanceConfig) (PluginInstance, error)
	Close(ctx context.Context) error
}

// PluginInstance abstracts extismSDK.Plugin.
type PluginInstance interface {
	Call(name string, data []byte) (uint32, []byte, error)
	CallWithContext(ctx context.Context, name string, data []byte) (uint32, []byte, error)
	FunctionExists(name string) bool
	Close(ctx context.Context) error
}

type compiledPluginAdapter struct {
	plugin *extismSDK.CompiledPlugin
}

func newCompiledPluginAdapter(plugin *extismSDK.CompiledPlugin) CompiledPlugin {
	return &compiledPluginAdapter{plugin: plugin}
}

func (a *compiledPluginAdapter) Instance(
	ctx context.Context,
	config extismSDK.PluginInstanceConfig,
) (PluginInstance, error) {
	instance, err := a.plugin.Instance(ctx, config)
	if err != nil {
		return nil, err
	}
	return &pluginInstanceAdapter{instance: instance}, nil
}

func (a *compiledPluginAdapter) Close(ctx context.Context) error {
	return a.plugin.Close(ctx)
}

type pluginInstanceAdapter struct {
	instance *extismSDK.Plugin
}

func (a *pluginInstanceAdapter) Call(name string, data []byte) (uint32, []byte, error) {
	return a.instance.Call(name, data)
}

func (a *pluginInstanceAdapter) CallWithContext(
	ctx context.Context,
	name string,
	data []byte,
) (uint32, []byte, error) {
	return a.instance.CallWithContext(ctx, name, data)
}

func (a *pluginInstanceAdapter) FunctionExists(name string) bool {
	return a.instance.FunctionExists(name)
}

func (a *pluginInstanceAdapter) Close(ctx context.Context) error {
	return a.instance.Close(ctx)
}

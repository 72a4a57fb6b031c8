package starlark

import (
	"fmt"

	starlarkLib "go.starlark.net/starlark"
)

// convertToStarlarkDict converts context attribute data into a Starlark
// dict, handed to a unit's set_context function. Values of unsupported
// types fall back to their string rendering so a context attribute can
// never make an invocation fail.
func convertToStarlarkDict(attrs map[string]any) *starlarkLib.Dict {
	dict := starlarkLib.NewDict(len(attrs))
	for k, v := range attrs {
		value, err := convertToStarlarkValue(v)
		if err != nil {
			value = starlarkLib.String(fmt.Sprintf("%v", v))
		}
		// SetKey on a fresh unfrozen dict with string keys cannot fail
		_ = dict.SetKey(starlarkLib.String(k), value)
	}
	return dict
}

func convertToStarlarkValue(v any) (starlarkLib.Value, error) {
	if v == nil {
		return starlarkLib.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlarkLib.Bool(val), nil
	case int:
		return starlarkLib.MakeInt(val), nil
	case int64:
		return starlarkLib.MakeInt64(val), nil
	case float64:
		return starlarkLib.Float(val), nil
	case string:
		return starlarkLib.String(val), nil
	case []string:
		elements := make([]starlarkLib.Value, len(val))
		for i, elem := range val {
			elements[i] = starlarkLib.String(elem)
		}
		return starlarkLib.NewList(elements), nil
	case []any:
		elements := make([]starlarkLib.Value, len(val))
		for i, elem := range val {
			var err error
			elements[i], err = convertToStarlarkValue(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to convert list element: %w", err)
			}
		}
		return starlarkLib.NewList(elements), nil
	case map[string]any:
		dict := starlarkLib.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := convertToStarlarkValue(v)
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value: %w", err)
			}
			if err := dict.SetKey(starlarkLib.String(k), starlarkVal); err != nil {
				return nil, fmt.Errorf("failed to set dict key: %w", err)
			}
		}
		return dict, nil
	case starlarkLib.Value:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// argsToList converts the argument vector into a Starlark list, the single
// parameter of a qualifying main function.
func argsToList(args []string) *starlarkLib.List {
	elements := make([]starlarkLib.Value, len(args))
	for i, arg := range args {
		elements[i] = starlarkLib.String(arg)
	}
	return starlarkLib.NewList(elements)
}

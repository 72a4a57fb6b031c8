package risor

import "fmt"

// sanitizeAttrs deep-copies attribute data into values Risor's global
// conversion accepts. Values of unsupported types fall back to their string
// rendering so a context attribute can never make an invocation fail.
func sanitizeAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int, int64, float64, string, []byte:
		return val
	case []string:
		elements := make([]any, len(val))
		for i, elem := range val {
			elements[i] = elem
		}
		return elements
	case []any:
		elements := make([]any, len(val))
		for i, elem := range val {
			elements[i] = sanitizeValue(elem)
		}
		return elements
	case map[string]any:
		return sanitizeAttrs(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

package starlark

import (
	"maps"

	starlarkJSON "go.starlark.net/lib/json"
	starlarkMath "go.starlark.net/lib/math"
	starlarkTime "go.starlark.net/lib/time"
	starlarkLib "go.starlark.net/starlark"
)

// Module namespace constants used in both compilation and linking phases.
// These must be defined identically in both places so that programs compile
// and initialize against the same universe.
const (
	namespaceJSON = "json" // JSON encoding/decoding functions
	namespaceMath = "math" // mathematical functions and constants
	namespaceTime = "time" // time-related functions
)

// standardModules returns a copy of the Starlark universe with additional
// modules.
func standardModules() starlarkLib.StringDict {
	universe := maps.Clone(starlarkLib.Universe)

	universe[namespaceJSON] = starlarkJSON.Module
	universe[namespaceMath] = starlarkMath.Module
	universe[namespaceTime] = starlarkTime.Module

	return universe
}

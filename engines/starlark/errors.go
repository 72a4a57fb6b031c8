package starlark

import "errors"

var ErrContentNil = errors.New("starlark content is nil")
var ErrBytecodeNil = errors.New("starlark bytecode is nil")

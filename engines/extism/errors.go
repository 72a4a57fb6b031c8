package extism

import "errors"

var (
	ErrContentNil    = errors.New("wasm content is nil")
	ErrInvalidBinary = errors.New("invalid wasm binary")
	ErrUnitClosed    = errors.New("wasm unit is closed")
)

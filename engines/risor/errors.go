package risor

import "errors"

var (
	ErrContentNil     = errors.New("risor content is nil")
	ErrBytecodeNil    = errors.New("risor bytecode is nil")
	ErrNoInstructions = errors.New("risor bytecode has zero instructions")
)

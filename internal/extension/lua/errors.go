package lua

import "errors"

// Lua state errors.
var (
	// ErrStateClosed is returned when an operation targets a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script exceeds its execution
	// budget.
	ErrExecutionTimeout = errors.New("lua execution timeout exceeded")

	// ErrNotAFunction is returned when a named global is not callable.
	ErrNotAFunction = errors.New("global is not a function")
)

package bridge

import "errors"

// Boundary transport errors.
var (
	// ErrShutdown is returned for calls attempted or in flight after the
	// transport closed.
	ErrShutdown = errors.New("boundary transport shut down")

	// ErrFrameTooLarge is returned when an incoming frame exceeds the
	// configured maximum.
	ErrFrameTooLarge = errors.New("boundary frame exceeds maximum size")

	// ErrInvalidOwner is returned when a registration carries an owner
	// identity that cannot be parsed.
	ErrInvalidOwner = errors.New("invalid owner identity")

	// ErrDuplicateHandle is returned when a registration reuses a handle
	// that is still live on the host.
	ErrDuplicateHandle = errors.New("handle already registered")
)

package cell

import "errors"

// Core errors shared across the registry and boundary layers.
var (
	// ErrNoProvider is returned when no provider is registered, or every
	// registered provider rejected the operation.
	ErrNoProvider = errors.New("no provider available")

	// ErrUnknownHandle is returned when an operation references a handle
	// absent from the local registration map.
	ErrUnknownHandle = errors.New("unknown provider handle")

	// ErrUnknownResource is returned by a provider that does not manage the
	// named resource.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrOutOfRange is returned by a provider when an address falls outside
	// the resource's bounds.
	ErrOutOfRange = errors.New("address out of range")

	// ErrReadOnly is returned by a provider when a write targets a read-only
	// unit.
	ErrReadOnly = errors.New("unit is read-only")

	// ErrDisposed is returned when an operation is attempted on a disposed
	// component.
	ErrDisposed = errors.New("disposed")
)

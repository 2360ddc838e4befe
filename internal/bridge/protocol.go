package bridge

import (
	"errors"
	"fmt"

	"github.com/dshills/gridstorm/internal/cell"
)

// Handle identifies one provider registration across the boundary. Handles
// are allocated by the Client from a monotonically increasing counter and
// are never reused for the lifetime of that client.
type Handle uint64

// Boundary method names.
const (
	MethodRegisterProvider   = "provider/register"
	MethodUnregisterProvider = "provider/unregister"
	MethodReadCell           = "cell/read"
	MethodWriteCell          = "cell/write"
)

// RegisterParams carries a provider registration to the host.
type RegisterParams struct {
	Handle Handle `json:"handle"`
	Owner  string `json:"owner"`
}

// UnregisterParams reverses a registration.
type UnregisterParams struct {
	Handle Handle `json:"handle"`
}

// ReadParams carries a cell read back to the owning client.
type ReadParams struct {
	Handle   Handle          `json:"handle"`
	Resource cell.ResourceID `json:"resource"`
	Address  cell.Address    `json:"address"`
}

// WriteParams carries a cell write back to the owning client.
type WriteParams struct {
	Handle   Handle          `json:"handle"`
	Resource cell.ResourceID `json:"resource"`
	Unit     cell.Unit       `json:"unit"`
}

// Ack is the empty success reply for register/unregister/write.
type Ack struct {
	OK bool `json:"ok"`
}

// RPCError is a JSON-RPC error object crossing the boundary.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Gridstorm error codes (reserved implementation range).
const (
	CodeUnknownHandle   = -32001
	CodeUnknownResource = -32002
	CodeOutOfRange      = -32003
	CodeReadOnly        = -32004
	CodeNoProvider      = -32005
	CodeInvalidOwner    = -32006
	CodeDuplicateHandle = -32007
)

// toRPCError converts a handler error to its wire form, mapping sentinel
// errors to their boundary codes so the far side can reconstruct them.
func toRPCError(err error) *RPCError {
	code := CodeInternalError
	switch {
	case errors.Is(err, cell.ErrUnknownHandle):
		code = CodeUnknownHandle
	case errors.Is(err, cell.ErrUnknownResource):
		code = CodeUnknownResource
	case errors.Is(err, cell.ErrOutOfRange):
		code = CodeOutOfRange
	case errors.Is(err, cell.ErrReadOnly):
		code = CodeReadOnly
	case errors.Is(err, cell.ErrNoProvider):
		code = CodeNoProvider
	case errors.Is(err, ErrInvalidOwner):
		code = CodeInvalidOwner
	case errors.Is(err, ErrDuplicateHandle):
		code = CodeDuplicateHandle
	}
	return &RPCError{Code: code, Message: err.Error()}
}

// fromRPCError reconstructs a sentinel-wrapped error from its wire form so
// errors.Is works on both sides of the boundary.
func fromRPCError(e *RPCError) error {
	switch e.Code {
	case CodeUnknownHandle:
		return fmt.Errorf("%w: %s", cell.ErrUnknownHandle, e.Message)
	case CodeUnknownResource:
		return fmt.Errorf("%w: %s", cell.ErrUnknownResource, e.Message)
	case CodeOutOfRange:
		return fmt.Errorf("%w: %s", cell.ErrOutOfRange, e.Message)
	case CodeReadOnly:
		return fmt.Errorf("%w: %s", cell.ErrReadOnly, e.Message)
	case CodeNoProvider:
		return fmt.Errorf("%w: %s", cell.ErrNoProvider, e.Message)
	case CodeInvalidOwner:
		return fmt.Errorf("%w: %s", ErrInvalidOwner, e.Message)
	case CodeDuplicateHandle:
		return fmt.Errorf("%w: %s", ErrDuplicateHandle, e.Message)
	default:
		return e
	}
}

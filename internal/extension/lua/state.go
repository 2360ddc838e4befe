package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for extension states.
const (
	DefaultExecutionTimeout = 5 * time.Second
	DefaultCallStackSize    = 128
)

// State is a sandboxed Lua state confined to a single logical owner. All
// operations serialize behind a mutex because gopher-lua states are not
// goroutine-safe.
type State struct {
	mu sync.Mutex
	L  *lua.LState

	executionTimeout time.Duration
	closed           bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds each DoFile/DoString/Call. Scripts that block
// without calling into Lua VM checkpoints cannot be interrupted mid-opcode;
// the timeout is enforced at VM instruction boundaries.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d > 0 {
			s.executionTimeout = d
		}
	}
}

// NewState creates a sandboxed state with only the safe libraries opened.
func NewState(opts ...StateOption) *State {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: DefaultCallStackSize,
	})
	s.L = L

	openSafeLibraries(L)
	removeUnsafeGlobals(L)

	return s
}

// openSafeLibraries opens only the safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// io, os, debug, and package stay closed.
}

// removeUnsafeGlobals strips the loaders that would let a script escape the
// sandbox.
func removeUnsafeGlobals(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// DoFile executes a Lua file. Blocks until completion, error, or timeout.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.bounded(func() error { return s.L.DoFile(path) })
}

// DoString executes Lua source text.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.bounded(func() error { return s.L.DoString(code) })
}

// HasFunction reports whether the named global is a callable function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call invokes a global function with the given arguments and returns every
// result. The call runs under the execution timeout with panic recovery.
func (s *State) Call(name string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn := s.L.GetGlobal(name)
	if fn == lua.LNil {
		return nil, fmt.Errorf("function %q not found", name)
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%q: %w (got %s)", name, ErrNotAFunction, fn.Type())
	}

	stackTop := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	if err := s.bounded(func() error { return s.L.PCall(len(args), lua.MultRet, nil) }); err != nil {
		s.L.SetTop(stackTop)
		return nil, err
	}

	results := make([]lua.LValue, 0, s.L.GetTop()-stackTop)
	for i := stackTop + 1; i <= s.L.GetTop(); i++ {
		results = append(results, s.L.Get(i))
	}
	s.L.SetTop(stackTop)

	return results, nil
}

// SetGlobal sets a global in the state.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// LState exposes the raw state for value construction. The caller must hold
// no expectation of concurrent safety.
func (s *State) LState() *lua.LState {
	return s.L
}

// Close releases the state. Idempotent.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// bounded runs fn under the execution timeout with panic recovery. Must be
// called with the mutex held.
func (s *State) bounded(fn func() error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
	defer cancel()

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	err = fn()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w after %s: %v", ErrExecutionTimeout, s.executionTimeout, err)
	}
	return err
}

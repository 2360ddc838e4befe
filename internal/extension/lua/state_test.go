package lua_test

import (
	"errors"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/gridstorm/internal/extension/lua"
)

func TestDoStringAndCall(t *testing.T) {
	s := lua.NewState()
	defer s.Close()

	if err := s.DoString(`function add(a, b) return a + b end`); err != nil {
		t.Fatalf("do string: %v", err)
	}

	if !s.HasFunction("add") {
		t.Fatal("expected add to be a function")
	}

	results, err := s.Call("add", glua.LNumber(2), glua.LNumber(3))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if n, ok := results[0].(glua.LNumber); !ok || float64(n) != 5 {
		t.Errorf("expected 5, got %v", results[0])
	}
}

func TestCallMissingFunction(t *testing.T) {
	s := lua.NewState()
	defer s.Close()

	if _, err := s.Call("nope"); err == nil {
		t.Error("expected error for missing function")
	}
}

func TestCallNonFunctionGlobal(t *testing.T) {
	s := lua.NewState()
	defer s.Close()

	if err := s.DoString(`thing = 42`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Call("thing"); !errors.Is(err, lua.ErrNotAFunction) {
		t.Errorf("expected ErrNotAFunction, got %v", err)
	}
}

func TestSandboxRemovesLoaders(t *testing.T) {
	s := lua.NewState()
	defer s.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		if err := s.DoString(`assert(` + name + ` == nil)`); err != nil {
			t.Errorf("%s should be nil: %v", name, err)
		}
	}
}

func TestSandboxExcludesOSAndIO(t *testing.T) {
	s := lua.NewState()
	defer s.Close()

	if err := s.DoString(`assert(os == nil and io == nil)`); err != nil {
		t.Errorf("os/io should be closed: %v", err)
	}
}

func TestExecutionTimeout(t *testing.T) {
	s := lua.NewState(lua.WithExecutionTimeout(50 * time.Millisecond))
	defer s.Close()

	err := s.DoString(`while true do end`)
	if !errors.Is(err, lua.ErrExecutionTimeout) {
		t.Errorf("expected ErrExecutionTimeout for infinite loop, got %v", err)
	}
}

func TestClosedStateRejects(t *testing.T) {
	s := lua.NewState()
	s.Close()
	s.Close() // idempotent

	if err := s.DoString(`x = 1`); !errors.Is(err, lua.ErrStateClosed) {
		t.Errorf("expected ErrStateClosed, got %v", err)
	}
	if _, err := s.Call("f"); !errors.Is(err, lua.ErrStateClosed) {
		t.Errorf("expected ErrStateClosed, got %v", err)
	}
	if s.HasFunction("f") {
		t.Error("closed state should report no functions")
	}
}

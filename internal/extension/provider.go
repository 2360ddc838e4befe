package extension

import (
	"context"
	"fmt"
	"sync/atomic"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/gridstorm/internal/cell"
	"github.com/dshills/gridstorm/internal/extension/lua"
)

// Lua provider entry points. A script that defines ReadFunc participates in
// reads; WriteFunc is optional and its absence makes the provider read-only.
const (
	ReadFunc  = "read_address"
	WriteFunc = "write_address"
)

// Error strings a script may return to signal contract errors.
const (
	luaErrUnknownResource = "unknown_resource"
	luaErrOutOfRange      = "out_of_range"
	luaErrReadOnly        = "read_only"
)

// LuaProvider adapts an extension script's read_address/write_address
// functions to the cell.Provider contract. The underlying state serializes
// calls, so concurrent dispatch against one extension is safe but not
// parallel.
type LuaProvider struct {
	state    *lua.State
	owner    string
	disposed atomic.Bool
}

// NewLuaProvider wraps the state's provider functions.
func NewLuaProvider(state *lua.State, owner string) *LuaProvider {
	return &LuaProvider{state: state, owner: owner}
}

// ReadAddress calls read_address(resource, row, col) in the extension.
func (p *LuaProvider) ReadAddress(_ context.Context, res cell.ResourceID, addr cell.Address) (cell.Unit, error) {
	if p.disposed.Load() {
		return cell.Unit{}, fmt.Errorf("%s: %w", p.owner, cell.ErrDisposed)
	}

	results, err := p.state.Call(ReadFunc,
		glua.LString(res),
		glua.LNumber(addr.Row),
		glua.LNumber(addr.Col))
	if err != nil {
		return cell.Unit{}, fmt.Errorf("%s read: %w", p.owner, err)
	}

	if err := scriptError(results, res, addr); err != nil {
		return cell.Unit{}, err
	}

	value, err := fromLua(first(results))
	if err != nil {
		return cell.Unit{}, fmt.Errorf("%s read: %w", p.owner, err)
	}
	return cell.Unit{Address: addr, Value: value}, nil
}

// WriteAddress calls write_address(resource, row, col, value).
func (p *LuaProvider) WriteAddress(_ context.Context, res cell.ResourceID, unit cell.Unit) error {
	if p.disposed.Load() {
		return fmt.Errorf("%s: %w", p.owner, cell.ErrDisposed)
	}
	if !p.state.HasFunction(WriteFunc) {
		return fmt.Errorf("%s %s: %w", res, unit.Address, cell.ErrReadOnly)
	}

	results, err := p.state.Call(WriteFunc,
		glua.LString(res),
		glua.LNumber(unit.Address.Row),
		glua.LNumber(unit.Address.Col),
		toLua(unit.Value))
	if err != nil {
		return fmt.Errorf("%s write: %w", p.owner, err)
	}

	return scriptError(results, res, unit.Address)
}

// Dispose marks the provider dead. The Lua state itself belongs to the Host
// and is closed on unload, not here.
func (p *LuaProvider) Dispose() error {
	p.disposed.Store(true)
	return nil
}

// scriptError inspects the (value, err) return convention: a non-nil second
// result is an error string, mapped to a contract sentinel where it names
// one.
func scriptError(results []glua.LValue, res cell.ResourceID, addr cell.Address) error {
	if len(results) < 2 || results[1] == glua.LNil {
		return nil
	}

	msg := results[1].String()
	switch msg {
	case luaErrUnknownResource:
		return fmt.Errorf("%s: %w", res, cell.ErrUnknownResource)
	case luaErrOutOfRange:
		return fmt.Errorf("%s %s: %w", res, addr, cell.ErrOutOfRange)
	case luaErrReadOnly:
		return fmt.Errorf("%s %s: %w", res, addr, cell.ErrReadOnly)
	default:
		return fmt.Errorf("extension error: %s", msg)
	}
}

// first returns the first result or nil.
func first(results []glua.LValue) glua.LValue {
	if len(results) == 0 {
		return glua.LNil
	}
	return results[0]
}

// fromLua converts a Lua scalar to a cell value.
func fromLua(v glua.LValue) (cell.Value, error) {
	switch lv := v.(type) {
	case *glua.LNilType:
		return cell.Absent(), nil
	case glua.LString:
		return cell.StringValue(string(lv)), nil
	case glua.LNumber:
		return cell.Number(float64(lv)), nil
	case glua.LBool:
		return cell.Bool(bool(lv)), nil
	default:
		return cell.Value{}, fmt.Errorf("unsupported lua value type %s", v.Type())
	}
}

// toLua converts a cell value to its Lua form. Timestamps travel as RFC3339
// strings since Lua has no time type.
func toLua(v cell.Value) glua.LValue {
	switch v.Kind() {
	case cell.KindString:
		s, _ := v.AsString()
		return glua.LString(s)
	case cell.KindNumber:
		n, _ := v.AsNumber()
		return glua.LNumber(n)
	case cell.KindBool:
		b, _ := v.AsBool()
		return glua.LBool(b)
	case cell.KindTime:
		return glua.LString(v.String())
	default:
		return glua.LNil
	}
}

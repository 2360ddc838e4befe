// Package lua wraps gopher-lua for extension execution.
//
// Each extension runs in its own sandboxed state: only the base, table,
// string, and math libraries are opened, load/dofile/loadfile are removed,
// and every execution is bounded by an instruction budget. gopher-lua states
// are not goroutine-safe, so State serializes all access behind a mutex.
package lua

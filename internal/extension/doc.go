// Package extension loads and runs Gridstorm extensions.
//
// An extension is a directory holding a TOML manifest and a Lua entry point.
// The manifest names the publisher and the extension; together they form the
// owner identity ("publisher.name") that crosses the boundary with every
// provider registration. An activated extension whose script defines the
// read_address/write_address globals contributes a cell provider, registered
// with the trusted core through the boundary client.
//
// Extensions are isolated from the core: their Lua states are sandboxed and
// the only way in or out is the provider contract.
package extension

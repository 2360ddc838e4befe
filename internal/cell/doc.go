// Package cell defines the shared vocabulary of the Gridstorm core: resources,
// addresses, scalar values, and the Provider contract that every cell provider
// (local or boundary-proxied) satisfies.
//
// A resource is an opaque identifier for an addressable document (typically a
// URI). An address is a (row, col) pair locating one unit inside a resource.
// A unit is an address paired with a scalar value and is the atomic payload of
// both reads and writes.
//
// The types in this package cross the extension boundary as JSON, so their
// encodings are part of the boundary protocol and must stay stable.
package cell

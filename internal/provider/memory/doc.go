// Package memory implements a reference in-memory cell provider.
//
// It manages a set of bounded grids keyed by resource identifier and honors
// the full provider contract: unknown resources, out-of-range addresses, and
// read-only units all reject with their sentinel errors. The demo binary and
// the boundary tests use it as a concrete provider without dragging any file
// format parsing into the core.
package memory

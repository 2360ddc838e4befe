// Package bridge implements the asynchronous message-passing seam between
// the trusted core and isolated extension contexts.
//
// The boundary carries four request/reply pairs as JSON-RPC 2.0 over a
// Content-Length framed byte stream:
//
//   - provider/register   {handle, owner}            -> ack | error
//   - provider/unregister {handle}                   -> ack
//   - cell/read           {handle, resource, address} -> unit | error
//   - cell/write          {handle, resource, unit}    -> ack | error
//
// Live provider references never cross the boundary. Each side keeps an
// integer-indexed map of locally owned objects and only the handle travels:
// the Client (extension side) allocates handles from a monotonically
// increasing counter and maps them to local providers; the Host (trusted
// side) maps them to registry proxies that forward reads and writes back
// across the boundary.
//
// Transport failures reject the specific call they interrupted and never
// corrupt either side's handle map. Disposal is idempotent on both sides.
package bridge

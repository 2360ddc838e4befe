// Package registry implements the capability registry: the single source of
// truth for live cell providers inside the trusted core.
//
// Providers join in insertion order and that order is the deterministic
// fallback-attempt order for every read and write. Dispatch is
// attempt-and-fallback: each provider is awaited in turn until one succeeds,
// so no resource-to-provider routing table exists. Individual provider
// failures are contained (logged at debug level) and the next candidate is
// tried; only when every candidate has failed does the operation reject.
//
// The registry is an explicitly constructed instance injected into its
// consumers. There is no package-level global.
package registry

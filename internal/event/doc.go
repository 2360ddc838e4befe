// Package event provides a small synchronous bus for provider lifecycle
// notifications. Components that care about registrations (the demo binary,
// instrumentation, tests) subscribe; the registry publishes.
//
// Handlers run synchronously on the publisher's goroutine and are recovered
// from panics so a misbehaving subscriber cannot take down a registration
// path.
package event

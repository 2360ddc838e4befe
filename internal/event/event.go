package event

import "time"

// Type identifies a lifecycle event.
type Type string

// Lifecycle event types.
const (
	// TypeProviderRegistered fires after a provider joins the registry.
	TypeProviderRegistered Type = "provider.registered"

	// TypeProviderUnregistered fires after a provider leaves the registry.
	TypeProviderUnregistered Type = "provider.unregistered"

	// TypeRegistryDisposed fires after the registry disposes all providers.
	TypeRegistryDisposed Type = "registry.disposed"
)

// Event describes one lifecycle transition.
type Event struct {
	// Type is the lifecycle transition that occurred.
	Type Type

	// Owner is the extension identity behind the provider, when known.
	// Locally constructed providers publish an empty owner.
	Owner string

	// Providers is the registry's provider count after the transition.
	Providers int

	// Time is when the event was published.
	Time time.Time
}

// Handler receives published events.
type Handler func(Event)

package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/gridstorm/internal/cell"
	"github.com/dshills/gridstorm/internal/event"
)

// Registry holds the ordered collection of live providers and dispatches
// read/write operations to them with ordered-fallback semantics.
//
// Registry is safe for concurrent use. The provider collection is guarded by
// a mutex that is never held across a provider call, so a stalled provider
// cannot block registration or disposal.
type Registry struct {
	mu        sync.Mutex
	entries   []*entry
	disposing bool

	log *zap.Logger
	bus *event.Bus
}

// entry wraps a registered provider. The removed flag makes the dispose
// func idempotent and guards against double disposal during teardown.
type entry struct {
	provider cell.Provider
	owner    string
	removed  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithBus attaches a lifecycle event bus. Without one, lifecycle events are
// silently dropped.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends the provider to the ordered collection and returns an
// idempotent dispose func that removes exactly this registration and calls
// the provider's own Dispose once. Later registrations are attempted after
// earlier ones during fallback.
func (r *Registry) Register(p cell.Provider) func() {
	return r.RegisterOwned(p, "")
}

// RegisterOwned is Register with an owner identity attached for lifecycle
// events. The boundary host uses it so subscribers can see which extension
// a registration belongs to.
func (r *Registry) RegisterOwned(p cell.Provider, owner string) func() {
	e := &entry{provider: p, owner: owner}

	r.mu.Lock()
	r.entries = append(r.entries, e)
	count := len(r.entries)
	r.mu.Unlock()

	r.log.Debug("provider registered",
		zap.String("owner", owner),
		zap.Int("providers", count))
	r.bus.Publish(event.Event{
		Type:      event.TypeProviderRegistered,
		Owner:     owner,
		Providers: count,
	})

	return func() { r.remove(e) }
}

// remove detaches the entry and disposes its provider. Safe to call more
// than once; only the first call has any effect.
func (r *Registry) remove(e *entry) {
	r.mu.Lock()
	if e.removed {
		r.mu.Unlock()
		return
	}
	e.removed = true
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	count := len(r.entries)
	r.mu.Unlock()

	if err := e.provider.Dispose(); err != nil {
		r.log.Debug("provider dispose failed",
			zap.String("owner", e.owner),
			zap.Error(err))
	}

	r.log.Debug("provider unregistered",
		zap.String("owner", e.owner),
		zap.Int("providers", count))
	r.bus.Publish(event.Event{
		Type:      event.TypeProviderUnregistered,
		Owner:     e.owner,
		Providers: count,
	})
}

// Read dispatches a read to the providers in registration order. The first
// provider that resolves wins; failures are logged and the next candidate is
// tried. When no provider resolves the call rejects with cell.ErrNoProvider,
// wrapping the last provider failure when there was one.
func (r *Registry) Read(ctx context.Context, res cell.ResourceID, addr cell.Address) (cell.Unit, error) {
	var lastErr error

	for i, p := range r.snapshot() {
		unit, err := p.ReadAddress(ctx, res, addr)
		if err == nil {
			return unit, nil
		}
		lastErr = err
		r.log.Debug("provider read failed, trying next",
			zap.Int("provider", i),
			zap.String("resource", res.String()),
			zap.String("address", addr.String()),
			zap.Error(err))
	}

	return cell.Unit{}, noProvider("read", res, addr, lastErr)
}

// Write dispatches a write to the providers in registration order. The first
// provider whose write completes wins; remaining providers are not attempted.
func (r *Registry) Write(ctx context.Context, res cell.ResourceID, unit cell.Unit) error {
	var lastErr error

	for i, p := range r.snapshot() {
		err := p.WriteAddress(ctx, res, unit)
		if err == nil {
			return nil
		}
		lastErr = err
		r.log.Debug("provider write failed, trying next",
			zap.Int("provider", i),
			zap.String("resource", res.String()),
			zap.String("address", unit.Address.String()),
			zap.Error(err))
	}

	return noProvider("write", res, unit.Address, lastErr)
}

// Len returns the current provider count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Dispose disposes every remaining provider exactly once and empties the
// collection. Reentrant and repeated calls are no-ops.
func (r *Registry) Dispose() {
	r.mu.Lock()
	if r.disposing {
		r.mu.Unlock()
		return
	}
	r.disposing = true
	remaining := r.entries
	r.entries = nil
	for _, e := range remaining {
		e.removed = true
	}
	r.mu.Unlock()

	for _, e := range remaining {
		if err := e.provider.Dispose(); err != nil {
			r.log.Debug("provider dispose failed",
				zap.String("owner", e.owner),
				zap.Error(err))
		}
	}

	r.mu.Lock()
	r.disposing = false
	r.mu.Unlock()

	if len(remaining) > 0 {
		r.log.Debug("registry disposed", zap.Int("disposed", len(remaining)))
		r.bus.Publish(event.Event{Type: event.TypeRegistryDisposed})
	}
}

// snapshot copies the ordered providers so dispatch never holds the lock
// across a provider call.
func (r *Registry) snapshot() []cell.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	providers := make([]cell.Provider, len(r.entries))
	for i, e := range r.entries {
		providers[i] = e.provider
	}
	return providers
}

// noProvider builds the terminal rejection for an exhausted fallback chain.
func noProvider(op string, res cell.ResourceID, addr cell.Address, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%s %s %s: %w: last provider error: %w",
			op, res, addr, cell.ErrNoProvider, lastErr)
	}
	return fmt.Errorf("%s %s %s: %w", op, res, addr, cell.ErrNoProvider)
}

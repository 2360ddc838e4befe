package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/gridstorm/internal/cell"
	"github.com/dshills/gridstorm/internal/registry"
)

// ownerPattern validates extension owner identities: "publisher.name" with
// lowercase alphanumeric segments and inner hyphens.
var ownerPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.[a-z0-9][a-z0-9-]*$`)

// Host is the trusted side of the boundary. For every registration message
// it constructs a proxy that forwards reads and writes back across the
// boundary to the owning client, registers the proxy with the capability
// registry, and remembers the registry dispose func so the registration can
// later be reversed from either side.
type Host struct {
	transport *Transport
	registry  *registry.Registry
	log       *zap.Logger

	mu            sync.Mutex
	registrations map[Handle]func()
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the host's logger.
func WithHostLogger(log *zap.Logger) HostOption {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHost creates a host serving registrations from the given transport into
// the given registry.
func NewHost(t *Transport, reg *registry.Registry, opts ...HostOption) *Host {
	h := &Host{
		transport:     t,
		registry:      reg,
		log:           zap.NewNop(),
		registrations: make(map[Handle]func()),
	}
	for _, opt := range opts {
		opt(h)
	}

	t.OnRequest(MethodRegisterProvider, h.handleRegister)
	t.OnRequest(MethodUnregisterProvider, h.handleUnregister)

	return h
}

// handleRegister serves provider/register: validate the owner identity,
// build the boundary proxy, and register it.
func (h *Host) handleRegister(_ context.Context, params json.RawMessage) (any, error) {
	var p RegisterParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("register params: %w", err)
	}

	if !ownerPattern.MatchString(p.Owner) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOwner, p.Owner)
	}

	prox := &proxy{transport: h.transport, handle: p.Handle, owner: p.Owner}

	h.mu.Lock()
	if _, exists := h.registrations[p.Handle]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrDuplicateHandle, p.Handle)
	}
	h.registrations[p.Handle] = h.registry.RegisterOwned(prox, p.Owner)
	h.mu.Unlock()

	h.log.Debug("boundary provider registered",
		zap.Uint64("handle", uint64(p.Handle)),
		zap.String("owner", p.Owner))

	return Ack{OK: true}, nil
}

// handleUnregister serves provider/unregister. Unknown handles ack as a
// no-op.
func (h *Host) handleUnregister(_ context.Context, params json.RawMessage) (any, error) {
	var p UnregisterParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("unregister params: %w", err)
	}

	h.mu.Lock()
	dispose, ok := h.registrations[p.Handle]
	if ok {
		delete(h.registrations, p.Handle)
	}
	h.mu.Unlock()

	if ok {
		// The registry's own dispose path guarantees single disposal.
		dispose()
		h.log.Debug("boundary provider unregistered", zap.Uint64("handle", uint64(p.Handle)))
	}

	return Ack{OK: true}, nil
}

// Registrations returns the number of live boundary registrations.
func (h *Host) Registrations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.registrations)
}

// Dispose reverses every remaining registration exactly once. Connection
// teardown calls this so no provider proxy outlives its connection.
// Handles already unregistered are not disposed again.
func (h *Host) Dispose() {
	h.mu.Lock()
	remaining := h.registrations
	h.registrations = make(map[Handle]func())
	h.mu.Unlock()

	for handle, dispose := range remaining {
		dispose()
		h.log.Debug("boundary provider disposed on teardown", zap.Uint64("handle", uint64(handle)))
	}
}

// proxy is the registry-facing face of a boundary provider. Reads and
// writes cross back to the owning client carrying only the handle.
type proxy struct {
	transport *Transport
	handle    Handle
	owner     string
	disposed  atomic.Bool
}

// ReadAddress forwards the read across the boundary and awaits the reply.
func (p *proxy) ReadAddress(ctx context.Context, res cell.ResourceID, addr cell.Address) (cell.Unit, error) {
	if p.disposed.Load() {
		return cell.Unit{}, fmt.Errorf("provider %s: %w", p.owner, cell.ErrDisposed)
	}

	var unit cell.Unit
	err := p.transport.Call(ctx, MethodReadCell, ReadParams{
		Handle:   p.handle,
		Resource: res,
		Address:  addr,
	}, &unit)
	if err != nil {
		return cell.Unit{}, err
	}
	return unit, nil
}

// WriteAddress forwards the write across the boundary and awaits the ack.
func (p *proxy) WriteAddress(ctx context.Context, res cell.ResourceID, unit cell.Unit) error {
	if p.disposed.Load() {
		return fmt.Errorf("provider %s: %w", p.owner, cell.ErrDisposed)
	}

	var ack Ack
	return p.transport.Call(ctx, MethodWriteCell, WriteParams{
		Handle:   p.handle,
		Resource: res,
		Unit:     unit,
	}, &ack)
}

// Dispose marks the proxy dead. The client-side provider is not notified
// here: either the client initiated the unregistration itself, or the whole
// connection is being torn down and the client context is disposed with it.
func (p *proxy) Dispose() error {
	p.disposed.Store(true)
	return nil
}

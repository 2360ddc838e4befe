package extension

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/gridstorm/internal/bridge"
	"github.com/dshills/gridstorm/internal/extension/lua"
)

// Status is an extension's lifecycle state.
type Status int

const (
	// StatusUnloaded means no Lua state exists yet.
	StatusUnloaded Status = iota
	// StatusLoaded means the entry point ran but no provider is registered.
	StatusLoaded
	// StatusActive means the extension's provider is live on the boundary.
	StatusActive
	// StatusError means the last lifecycle transition failed.
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoaded:
		return "loaded"
	case StatusActive:
		return "active"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Host manages one extension's Lua state and provider lifecycle:
// Unloaded -> Loaded -> Active -> Loaded -> Unloaded. Disposal is reachable
// from every state and never transitions back to Active on its own.
type Host struct {
	mu sync.Mutex

	manifest *Manifest
	state    *lua.State
	status   Status
	err      error

	// dispose reverses the boundary registration while active.
	dispose func(context.Context) error
	handle  bridge.Handle

	executionTimeout time.Duration
	log              *zap.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithExecutionTimeout bounds each script execution.
func WithExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		if d > 0 {
			h.executionTimeout = d
		}
	}
}

// WithHostLogger sets the host's logger.
func WithHostLogger(log *zap.Logger) HostOption {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHost creates a host for the given manifest.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is nil")
	}

	h := &Host{
		manifest:         manifest,
		status:           StatusUnloaded,
		executionTimeout: lua.DefaultExecutionTimeout,
		log:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Manifest returns the extension's manifest.
func (h *Host) Manifest() *Manifest { return h.manifest }

// Status returns the current lifecycle state.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns the error from the last failed transition, if any.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Handle returns the boundary handle while active.
func (h *Host) Handle() bridge.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handle
}

// Load creates the sandboxed state and runs the entry point.
func (h *Host) Load(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != StatusUnloaded {
		return ErrAlreadyLoaded
	}

	state := lua.NewState(lua.WithExecutionTimeout(h.executionTimeout))
	if err := state.DoFile(h.manifest.MainPath()); err != nil {
		state.Close()
		h.status = StatusError
		h.err = fmt.Errorf("load %s: %w", h.manifest.Owner(), err)
		return h.err
	}

	h.state = state
	h.status = StatusLoaded
	h.err = nil

	h.log.Debug("extension loaded", zap.String("owner", h.manifest.Owner()))
	return nil
}

// Activate registers the extension's provider across the boundary. The
// script must define read_address; write_address is optional and its
// absence makes the provider read-only.
func (h *Host) Activate(ctx context.Context, client *bridge.Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != StatusLoaded {
		return ErrNotLoaded
	}
	if !h.state.HasFunction(ReadFunc) {
		h.status = StatusError
		h.err = fmt.Errorf("%s: %w", h.manifest.Owner(), ErrNoProviderFunctions)
		return h.err
	}

	provider := NewLuaProvider(h.state, h.manifest.Owner())
	handle, dispose, err := client.Register(ctx, h.manifest.Owner(), provider)
	if err != nil {
		h.status = StatusError
		h.err = fmt.Errorf("activate %s: %w", h.manifest.Owner(), err)
		return h.err
	}

	h.handle = handle
	h.dispose = dispose
	h.status = StatusActive
	h.err = nil

	h.log.Debug("extension activated",
		zap.String("owner", h.manifest.Owner()),
		zap.Uint64("handle", uint64(handle)))
	return nil
}

// Deactivate unregisters the provider, returning the extension to Loaded.
func (h *Host) Deactivate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != StatusActive {
		return nil
	}

	err := h.dispose(ctx)
	h.dispose = nil
	h.status = StatusLoaded
	if err != nil {
		// The local side is already unregistered; surface the boundary
		// failure but do not block the transition.
		h.err = fmt.Errorf("deactivate %s: %w", h.manifest.Owner(), err)
		return h.err
	}

	h.log.Debug("extension deactivated", zap.String("owner", h.manifest.Owner()))
	return nil
}

// Unload deactivates if needed and closes the Lua state. Idempotent.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	if h.status == StatusActive && h.dispose != nil {
		_ = h.dispose(ctx)
		h.dispose = nil
	}
	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
	h.status = StatusUnloaded
	h.err = nil
	h.mu.Unlock()
	return nil
}

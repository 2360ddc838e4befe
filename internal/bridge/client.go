package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/gridstorm/internal/cell"
)

// Client is the extension side of the boundary. It allocates handles, keeps
// the local handle-to-provider map, forwards boundary-originated reads and
// writes into the matching local provider, and emits registration messages
// toward the trusted side.
type Client struct {
	transport *Transport
	log       *zap.Logger

	// nextHandle is shared by all registrations from this client and never
	// resets; the first allocated handle is 0.
	nextHandle atomic.Uint64

	mu        sync.Mutex
	providers map[Handle]cell.Provider
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client's logger.
func WithClientLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client serving cell reads and writes from the given
// transport.
func NewClient(t *Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		log:       zap.NewNop(),
		providers: make(map[Handle]cell.Provider),
	}
	for _, opt := range opts {
		opt(c)
	}

	t.OnRequest(MethodReadCell, c.handleRead)
	t.OnRequest(MethodWriteCell, c.handleWrite)

	return c
}

// Register makes the provider live: it allocates the next handle, stores the
// provider locally, and sends the registration to the host. Registration is
// complete only once the host acks; a failed registration removes the local
// entry and surfaces the error.
//
// The returned dispose func unregisters on the host and removes the local
// entry. It is idempotent; only the first invocation does anything.
func (c *Client) Register(ctx context.Context, owner string, p cell.Provider) (Handle, func(context.Context) error, error) {
	handle := Handle(c.nextHandle.Add(1) - 1)

	c.mu.Lock()
	c.providers[handle] = p
	c.mu.Unlock()

	var ack Ack
	if err := c.transport.Call(ctx, MethodRegisterProvider, RegisterParams{
		Handle: handle,
		Owner:  owner,
	}, &ack); err != nil {
		c.mu.Lock()
		delete(c.providers, handle)
		c.mu.Unlock()
		return 0, nil, fmt.Errorf("register provider %s: %w", owner, err)
	}

	c.log.Debug("provider registered across boundary",
		zap.Uint64("handle", uint64(handle)),
		zap.String("owner", owner))

	var once sync.Once
	dispose := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			c.mu.Lock()
			delete(c.providers, handle)
			c.mu.Unlock()

			var ack Ack
			err = c.transport.Call(ctx, MethodUnregisterProvider, UnregisterParams{
				Handle: handle,
			}, &ack)
		})
		return err
	}
	return handle, dispose, nil
}

// handleRead serves cell/read by forwarding into the local provider.
func (c *Client) handleRead(ctx context.Context, params json.RawMessage) (any, error) {
	var p ReadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}

	provider, err := c.lookup(p.Handle)
	if err != nil {
		return nil, err
	}
	return provider.ReadAddress(ctx, p.Resource, p.Address)
}

// handleWrite serves cell/write by forwarding into the local provider.
func (c *Client) handleWrite(ctx context.Context, params json.RawMessage) (any, error) {
	var p WriteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("write params: %w", err)
	}

	provider, err := c.lookup(p.Handle)
	if err != nil {
		return nil, err
	}
	if err := provider.WriteAddress(ctx, p.Resource, p.Unit); err != nil {
		return nil, err
	}
	return Ack{OK: true}, nil
}

// lookup resolves a handle to its local provider.
func (c *Client) lookup(handle Handle) (cell.Provider, error) {
	c.mu.Lock()
	provider, ok := c.providers[handle]
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("handle %d: %w", handle, cell.ErrUnknownHandle)
	}
	return provider, nil
}

// Providers returns the number of locally registered providers.
func (c *Client) Providers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.providers)
}

// Dispose clears the local map. It does not notify the peer: when the whole
// connection is torn down the host disposes its own side independently.
func (c *Client) Dispose() {
	c.mu.Lock()
	c.providers = make(map[Handle]cell.Provider)
	c.mu.Unlock()
}

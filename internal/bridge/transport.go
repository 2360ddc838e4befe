package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Framing defaults.
const (
	defaultReadBuffer = 64 * 1024
	defaultMaxFrame   = 8 * 1024 * 1024
)

// RequestHandler serves one boundary method. A returned error is converted
// to a wire error and delivered to the caller as that call's rejection.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Transport carries JSON-RPC 2.0 request/reply pairs over a byte stream with
// Content-Length framing. Both sides of the boundary hold one Transport over
// their half of the connection; requests flow in both directions.
//
// Transport is safe for concurrent use. Closing cancels every pending call
// with ErrShutdown and never corrupts the pending map.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	// writeMu serializes frame writes only. It is separate from mu so a
	// write blocked on a slow peer never stalls response routing or request
	// dispatch; holding mu across a pipe write can deadlock two transports
	// sending to each other.
	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   atomic.Int64
	pending  map[int64]chan *response
	handlers map[string]RequestHandler

	maxFrame int
	log      *zap.Logger

	closed atomic.Bool
	done   chan struct{}
}

// request is the wire form of an outbound or inbound request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is the wire form of a reply.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithTransportLogger sets the transport's logger.
func WithTransportLogger(log *zap.Logger) TransportOption {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// WithMaxFrame caps the size of a single incoming frame.
func WithMaxFrame(bytes int) TransportOption {
	return func(t *Transport) {
		if bytes > 0 {
			t.maxFrame = bytes
		}
	}
}

// NewTransport creates a transport over the given connection halves. The
// closer may be nil when the caller owns stream teardown.
func NewTransport(r io.Reader, w io.Writer, c io.Closer, opts ...TransportOption) *Transport {
	t := &Transport{
		reader:   bufio.NewReaderSize(r, defaultReadBuffer),
		writer:   w,
		closer:   c,
		pending:  make(map[int64]chan *response),
		handlers: make(map[string]RequestHandler),
		maxFrame: defaultMaxFrame,
		log:      zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins reading messages from the connection. Incoming requests are
// served with the given context as their base.
func (t *Transport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// Close closes the transport. Pending calls are released with ErrShutdown.
// Safe to call repeatedly.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	close(t.done)

	// Callers blocked on pending channels are released through t.done, so
	// the channels themselves are never closed here.
	t.mu.Lock()
	t.pending = make(map[int64]chan *response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// IsClosed reports whether the transport has been closed.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}

// Call sends a request and waits for the matching reply. Wire errors are
// reconstructed into their sentinel forms where the code maps to one.
func (t *Transport) Call(ctx context.Context, method string, params any, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.nextID.Add(1)
	ch := make(chan *response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &request{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  params,
	}
	if err := t.send(req); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp := <-ch:
		if resp.Error != nil {
			return fromRPCError(resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
		}
		return nil
	}
}

// OnRequest registers the handler for a boundary method. Must be called
// before Start.
func (t *Transport) OnRequest(method string, handler RequestHandler) {
	t.mu.Lock()
	t.handlers[method] = handler
	t.mu.Unlock()
}

// send writes one framed message.
func (t *Transport) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := io.WriteString(t.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// readLoop reads and dispatches messages until the connection or transport
// closes.
func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		msg, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			t.log.Debug("boundary read failed", zap.Error(err))
			continue
		}

		t.dispatch(ctx, msg)
	}
}

// readMessage reads a single framed message.
func (t *Transport) readMessage() (json.RawMessage, error) {
	var contentLength int
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				length, err := strconv.Atoi(strings.TrimSpace(parts[1]))
				if err == nil {
					contentLength = length
				}
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	if contentLength > t.maxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// dispatch routes one message: requests go to their method handler, replies
// to their waiting caller.
func (t *Transport) dispatch(ctx context.Context, data json.RawMessage) {
	method := gjson.GetBytes(data, "method")
	id := gjson.GetBytes(data, "id")

	switch {
	case method.Exists() && id.Exists():
		var req struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			t.log.Debug("malformed boundary request", zap.Error(err))
			return
		}
		// Served off the read loop so a slow handler cannot stall
		// unrelated traffic.
		go t.serveRequest(ctx, req.ID, req.Method, req.Params)

	case id.Exists():
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.log.Debug("malformed boundary response", zap.Error(err))
			return
		}
		t.handleResponse(&resp)

	default:
		t.log.Debug("dropping boundary message without id", zap.String("method", method.String()))
	}
}

// serveRequest runs the handler for an inbound request and sends the reply.
func (t *Transport) serveRequest(ctx context.Context, id int64, method string, params json.RawMessage) {
	t.mu.Lock()
	handler, ok := t.handlers[method]
	t.mu.Unlock()

	resp := &response{JSONRPC: "2.0", ID: id}

	if !ok {
		resp.Error = &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", method)}
	} else if result, err := handler(ctx, params); err != nil {
		resp.Error = toRPCError(err)
	} else {
		data, err := json.Marshal(result)
		if err != nil {
			resp.Error = &RPCError{Code: CodeInternalError, Message: err.Error()}
		} else {
			resp.Result = data
		}
	}

	if t.closed.Load() {
		return
	}
	if err := t.send(resp); err != nil {
		t.log.Debug("boundary reply failed",
			zap.String("method", method),
			zap.Error(err))
	}
}

// handleResponse releases the caller waiting on this reply.
func (t *Transport) handleResponse(resp *response) {
	if t.closed.Load() {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

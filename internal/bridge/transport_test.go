package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dshills/gridstorm/internal/bridge"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pipeCloser closes both halves of one side of a duplex pipe connection.
type pipeCloser struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p pipeCloser) Close() error {
	p.r.Close()
	return p.w.Close()
}

// newTransportPair connects two transports over in-process pipes and starts
// both. The returned cleanup closes both sides.
func newTransportPair(t *testing.T, opts ...bridge.TransportOption) (*bridge.Transport, *bridge.Transport, func()) {
	t.Helper()

	hostRead, clientWrite := io.Pipe()
	clientRead, hostWrite := io.Pipe()

	host := bridge.NewTransport(hostRead, hostWrite, pipeCloser{hostRead, hostWrite}, opts...)
	client := bridge.NewTransport(clientRead, clientWrite, pipeCloser{clientRead, clientWrite}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	host.Start(ctx)
	client.Start(ctx)

	cleanup := func() {
		cancel()
		host.Close()
		client.Close()
	}
	return host, client, cleanup
}

type echoParams struct {
	Text string `json:"text"`
}

func TestTransportCallRoundTrip(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	client.OnRequest("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return echoParams{Text: p.Text + "!"}, nil
	})

	var result echoParams
	if err := host.Call(context.Background(), "echo", echoParams{Text: "hi"}, &result); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.Text != "hi!" {
		t.Errorf("expected hi!, got %q", result.Text)
	}
}

func TestTransportBidirectionalCalls(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	host.OnRequest("ping", func(context.Context, json.RawMessage) (any, error) {
		return echoParams{Text: "host"}, nil
	})
	client.OnRequest("ping", func(context.Context, json.RawMessage) (any, error) {
		return echoParams{Text: "client"}, nil
	})

	var fromClient, fromHost echoParams
	if err := host.Call(context.Background(), "ping", nil, &fromClient); err != nil {
		t.Fatalf("host call failed: %v", err)
	}
	if err := client.Call(context.Background(), "ping", nil, &fromHost); err != nil {
		t.Fatalf("client call failed: %v", err)
	}

	if fromClient.Text != "client" || fromHost.Text != "host" {
		t.Errorf("expected client/host, got %q/%q", fromClient.Text, fromHost.Text)
	}
}

func TestTransportMethodNotFound(t *testing.T) {
	host, _, cleanup := newTransportPair(t)
	defer cleanup()

	err := host.Call(context.Background(), "nope", nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}

	var rpcErr *bridge.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != bridge.CodeMethodNotFound {
		t.Errorf("expected code %d, got %d", bridge.CodeMethodNotFound, rpcErr.Code)
	}
}

func TestTransportHandlerErrorRejectsCall(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	client.OnRequest("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("provider exploded")
	})

	err := host.Call(context.Background(), "fail", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var rpcErr *bridge.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}
	if rpcErr.Code != bridge.CodeInternalError {
		t.Errorf("expected internal error code, got %d", rpcErr.Code)
	}
}

func TestTransportCallAfterCloseRejects(t *testing.T) {
	host, _, cleanup := newTransportPair(t)
	cleanup()

	err := host.Call(context.Background(), "echo", nil, nil)
	if !errors.Is(err, bridge.ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
}

func TestTransportCloseReleasesPendingCall(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	block := make(chan struct{})
	client.OnRequest("hang", func(context.Context, json.RawMessage) (any, error) {
		<-block
		return nil, nil
	})
	defer close(block)

	done := make(chan error, 1)
	go func() {
		done <- host.Call(context.Background(), "hang", nil, nil)
	}()

	// Give the call time to get in flight before closing.
	time.Sleep(20 * time.Millisecond)
	host.Close()

	select {
	case err := <-done:
		if !errors.Is(err, bridge.ErrShutdown) {
			t.Errorf("expected ErrShutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not released by Close")
	}
}

func TestTransportCallHonorsContext(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	block := make(chan struct{})
	client.OnRequest("hang", func(context.Context, json.RawMessage) (any, error) {
		<-block
		return nil, nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := host.Call(ctx, "hang", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

// TestTransportBidirectionalStress drives concurrent traffic in both
// directions at once. Over unbuffered pipes a frame write only completes
// when the peer's read loop consumes it, so any lock shared between the
// write path and response routing wedges both sides; this must finish well
// inside the watchdog.
func TestTransportBidirectionalStress(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	echo := func(_ context.Context, params json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	host.OnRequest("echo", echo)
	client.OnRequest("echo", echo)

	const (
		workers      = 8
		callsPerSide = 200
	)

	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	run := func(from *bridge.Transport, side string) {
		defer wg.Done()
		for i := 0; i < callsPerSide; i++ {
			text := fmt.Sprintf("%s-%d", side, i)
			var result echoParams
			if err := from.Call(context.Background(), "echo", echoParams{Text: text}, &result); err != nil {
				errs <- fmt.Errorf("%s call %d: %w", side, i, err)
				return
			}
			if result.Text != text {
				errs <- fmt.Errorf("%s call %d: response routed to wrong caller", side, i)
				return
			}
		}
	}

	wg.Add(2 * workers)
	for i := 0; i < workers; i++ {
		go run(host, "host")
		go run(client, "client")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("bidirectional traffic wedged both transports")
	}

	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestTransportConcurrentCalls(t *testing.T) {
	host, client, cleanup := newTransportPair(t)
	defer cleanup()

	client.OnRequest("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return p, nil
	})

	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func(n int) {
			text := string(rune('a' + n))
			var result echoParams
			err := host.Call(context.Background(), "echo", echoParams{Text: text}, &result)
			if err == nil && result.Text != text {
				err = errors.New("response routed to wrong caller")
			}
			errs <- err
		}(i)
	}

	for i := 0; i < 16; i++ {
		if err := <-errs; err != nil {
			t.Errorf("call %d: %v", i, err)
		}
	}
}

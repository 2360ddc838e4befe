package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dshills/gridstorm/internal/cell"
	"github.com/dshills/gridstorm/internal/event"
	"github.com/dshills/gridstorm/internal/registry"
)

// fakeProvider is a scripted provider that records its invocations.
type fakeProvider struct {
	mu       sync.Mutex
	readErr  error
	writeErr error
	unit     cell.Unit

	reads    int
	writes   int
	disposes int
}

func (f *fakeProvider) ReadAddress(_ context.Context, _ cell.ResourceID, _ cell.Address) (cell.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return cell.Unit{}, f.readErr
	}
	return f.unit, nil
}

func (f *fakeProvider) WriteAddress(_ context.Context, _ cell.ResourceID, _ cell.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return f.writeErr
}

func (f *fakeProvider) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposes++
	return nil
}

func TestReadFallsBackInOrder(t *testing.T) {
	reg := registry.New()

	rejecting := errors.New("unsupported")
	p1 := &fakeProvider{readErr: rejecting}
	p2 := &fakeProvider{readErr: rejecting}
	p3 := &fakeProvider{unit: cell.Unit{
		Address: cell.Address{Row: 1, Col: 1},
		Value:   cell.Number(42),
	}}

	reg.Register(p1)
	reg.Register(p2)
	reg.Register(p3)

	unit, err := reg.Read(context.Background(), "file:///a.xlsx", cell.Address{Row: 1, Col: 1})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n, _ := unit.Value.AsNumber(); n != 42 {
		t.Errorf("expected 42, got %v", unit.Value)
	}

	if p1.reads != 1 || p2.reads != 1 || p3.reads != 1 {
		t.Errorf("expected each provider attempted exactly once, got %d/%d/%d",
			p1.reads, p2.reads, p3.reads)
	}
}

func TestWriteStopsAtFirstSuccess(t *testing.T) {
	reg := registry.New()

	p1 := &fakeProvider{writeErr: errors.New("read-only")}
	p2 := &fakeProvider{}
	p3 := &fakeProvider{}

	reg.Register(p1)
	reg.Register(p2)
	reg.Register(p3)

	unit := cell.Unit{Address: cell.Address{Row: 0, Col: 0}, Value: cell.StringValue("x")}
	if err := reg.Write(context.Background(), "file:///a.xlsx", unit); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if p1.writes != 1 {
		t.Errorf("expected provider 1 attempted once, got %d", p1.writes)
	}
	if p2.writes != 1 {
		t.Errorf("expected provider 2 attempted once, got %d", p2.writes)
	}
	if p3.writes != 0 {
		t.Errorf("expected provider 3 never attempted, got %d", p3.writes)
	}
}

func TestReadEmptyRegistryRejects(t *testing.T) {
	reg := registry.New()

	_, err := reg.Read(context.Background(), "file:///a.xlsx", cell.Address{})
	if !errors.Is(err, cell.ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestReadAllRejectFoldsIntoNoProvider(t *testing.T) {
	reg := registry.New()

	rejecting := errors.New("unsupported format")
	reg.Register(&fakeProvider{readErr: rejecting})
	reg.Register(&fakeProvider{readErr: rejecting})

	_, err := reg.Read(context.Background(), "file:///a.xlsx", cell.Address{})
	if !errors.Is(err, cell.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if !errors.Is(err, rejecting) {
		t.Errorf("expected last provider error to be wrapped, got %v", err)
	}
}

func TestDisposeFuncIsIdempotent(t *testing.T) {
	reg := registry.New()

	p := &fakeProvider{}
	dispose := reg.Register(p)

	dispose()
	dispose()

	if p.disposes != 1 {
		t.Errorf("expected 1 dispose, got %d", p.disposes)
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}

func TestRemovalPreservesOrder(t *testing.T) {
	reg := registry.New()

	rejecting := errors.New("nope")
	p1 := &fakeProvider{readErr: rejecting}
	p2 := &fakeProvider{readErr: rejecting}
	p3 := &fakeProvider{unit: cell.Unit{Value: cell.StringValue("third")}}

	reg.Register(p1)
	dispose2 := reg.Register(p2)
	reg.Register(p3)

	dispose2()

	unit, err := reg.Read(context.Background(), "res", cell.Address{})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if s, _ := unit.Value.AsString(); s != "third" {
		t.Errorf("expected third provider's unit, got %v", unit.Value)
	}
	if p1.reads != 1 {
		t.Errorf("expected first provider still attempted first, got %d reads", p1.reads)
	}
	if p2.reads != 0 {
		t.Errorf("expected removed provider skipped, got %d reads", p2.reads)
	}
}

func TestDisposeDisposesEachProviderOnce(t *testing.T) {
	reg := registry.New()

	providers := []*fakeProvider{{}, {}, {}}
	for _, p := range providers {
		reg.Register(p)
	}

	reg.Dispose()
	reg.Dispose()

	for i, p := range providers {
		if p.disposes != 1 {
			t.Errorf("provider %d: expected 1 dispose, got %d", i, p.disposes)
		}
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}

func TestDisposeFuncAfterRegistryDisposeIsNoOp(t *testing.T) {
	reg := registry.New()

	p := &fakeProvider{}
	dispose := reg.Register(p)

	reg.Dispose()
	dispose()

	if p.disposes != 1 {
		t.Errorf("expected 1 dispose, got %d", p.disposes)
	}
}

func TestRegistryPublishesLifecycleEvents(t *testing.T) {
	bus := event.NewBus()
	reg := registry.New(registry.WithBus(bus))

	var types []event.Type
	bus.Subscribe(func(e event.Event) { types = append(types, e.Type) })

	dispose := reg.RegisterOwned(&fakeProvider{}, "demo.sheet")
	dispose()
	reg.Register(&fakeProvider{})
	reg.Dispose()

	want := []event.Type{
		event.TypeProviderRegistered,
		event.TypeProviderUnregistered,
		event.TypeProviderRegistered,
		event.TypeRegistryDisposed,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d events, got %d (%v)", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}

package event_test

import (
	"sync"
	"testing"

	"github.com/dshills/gridstorm/internal/event"
)

func TestBusPublishDeliversToSubscribers(t *testing.T) {
	bus := event.NewBus()

	var got []event.Event
	bus.Subscribe(func(e event.Event) {
		got = append(got, e)
	})

	bus.Publish(event.Event{Type: event.TypeProviderRegistered, Owner: "demo.sheet", Providers: 1})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Type != event.TypeProviderRegistered {
		t.Errorf("expected %s, got %s", event.TypeProviderRegistered, got[0].Type)
	}
	if got[0].Owner != "demo.sheet" {
		t.Errorf("expected owner demo.sheet, got %s", got[0].Owner)
	}
	if got[0].Time.IsZero() {
		t.Error("expected publish time to be stamped")
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := event.NewBus()

	count := 0
	sub := bus.Subscribe(func(event.Event) { count++ })

	bus.Publish(event.Event{Type: event.TypeProviderRegistered})
	bus.Unsubscribe(sub)
	bus.Publish(event.Event{Type: event.TypeProviderUnregistered})

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusRecoversPanickingHandler(t *testing.T) {
	bus := event.NewBus()

	delivered := false
	bus.Subscribe(func(event.Event) { panic("bad subscriber") })
	bus.Subscribe(func(event.Event) { delivered = true })

	bus.Publish(event.Event{Type: event.TypeRegistryDisposed})

	if !delivered {
		t.Error("expected delivery to continue past panicking handler")
	}
}

func TestBusNilSafe(t *testing.T) {
	var bus *event.Bus
	bus.Publish(event.Event{Type: event.TypeProviderRegistered})

	if bus.Published() != 0 {
		t.Error("nil bus should report zero published")
	}
	if bus.SubscriberCount() != 0 {
		t.Error("nil bus should report zero subscribers")
	}
}

func TestBusConcurrentPublish(t *testing.T) {
	bus := event.NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(event.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				bus.Publish(event.Event{Type: event.TypeProviderRegistered})
			}
		}()
	}
	wg.Wait()

	if count != 200 {
		t.Errorf("expected 200 deliveries, got %d", count)
	}
	if bus.Published() != 200 {
		t.Errorf("expected 200 published, got %d", bus.Published())
	}
}

package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription identifies one subscriber on a bus.
type Subscription string

// Bus delivers lifecycle events to subscribers synchronously.
// The zero value is not usable; create one with NewBus.
// A nil *Bus is safe to publish to, which lets components treat the bus as
// optional wiring.
type Bus struct {
	mu   sync.RWMutex
	subs map[Subscription]Handler

	published uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Subscription]Handler),
	}
}

// Subscribe registers a handler and returns its subscription token.
func (b *Bus) Subscribe(h Handler) Subscription {
	sub := Subscription(uuid.New().String())

	b.mu.Lock()
	b.subs[sub] = h
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscription. Unknown subscriptions are a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber in turn. A zero Time is
// stamped with the current time. Publishing on a nil bus is a no-op.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.mu.Lock()
	b.published++
	b.mu.Unlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

// Published returns the number of events published so far.
func (b *Bus) Published() uint64 {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// deliver invokes a handler, recovering panics.
func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		_ = recover()
	}()
	h(e)
}

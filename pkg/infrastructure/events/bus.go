package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Bus is a synchronous observer registry. Publish calls listeners in
// registration order on the caller's goroutine, type-specific listeners
// first, then those subscribed to every type.
type Bus struct {
	mutex     sync.RWMutex
	listeners map[string][]Listener
	all       []Listener
}

var _ Publisher = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Subscribe registers l for the given event types
func (b *Bus) Subscribe(l Listener, eventTypes ...string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, eventType := range eventTypes {
		b.listeners[eventType] = append(b.listeners[eventType], l)
	}
}

// SubscribeAll registers l for every event type
func (b *Bus) SubscribeAll(l Listener) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.all = append(b.all, l)
}

// Publish delivers event to every matching listener and joins their errors
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mutex.RLock()
	targets := make([]Listener, 0, len(b.listeners[event.Type()])+len(b.all))
	targets = append(targets, b.listeners[event.Type()]...)
	targets = append(targets, b.all...)
	b.mutex.RUnlock()

	var errs []error
	for _, l := range targets {
		if err := l.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s listener: %w", event.Type(), err))
		}
	}
	return errors.Join(errs...)
}

package events

import (
	"context"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher decouples the services that emit domain events from the
// subscribers that react to them.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type memoryDispatcher struct {
	mu   sync.RWMutex
	subs map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a synchronous in-process dispatcher.
// Publish blocks until every subscriber has run; a failing subscriber
// never prevents the others from seeing the event.
func NewInMemoryDispatcher() Dispatcher {
	return &memoryDispatcher{subs: make(map[EventType][]EventHandler)}
}

func (d *memoryDispatcher) Publish(ctx context.Context, event Event) error {
	for _, handler := range d.handlersFor(event.Type) {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *memoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[eventType] = append(d.subs[eventType], handler)
}

// handlersFor copies the subscriber list so Publish never holds the lock
// while handlers run.
func (d *memoryDispatcher) handlersFor(eventType EventType) []EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]EventHandler(nil), d.subs[eventType]...)
}

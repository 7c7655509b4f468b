package events

import (
	"context"
	"errors"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// Runner is implemented by dispatchers that deliver from a background loop.
type Runner interface {
	Run(ctx context.Context) error
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event. Every handler
// runs even when an earlier one fails; the failures are joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	_, err := d.deliver(ctx, event, nil)
	return err
}

// deliver runs the handlers subscribed to the event type, restricted to the
// positions in only when it is non-empty. It returns the positions of the
// handlers that failed.
func (d *inMemoryDispatcher) deliver(ctx context.Context, event Event, only []int) ([]int, error) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	selected := make(map[int]bool, len(only))
	for _, idx := range only {
		selected[idx] = true
	}

	var (
		failed []int
		errs   []error
	)
	for idx, handler := range handlers {
		if len(selected) > 0 && !selected[idx] {
			continue
		}
		if err := handler(ctx, event); err != nil {
			failed = append(failed, idx)
			errs = append(errs, err)
		}
	}
	return failed, errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

package events

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher is an in-process implementation of Publisher that fans events out
// to subscribed handlers on a background goroutine. Handlers are registered
// per event type name before Start.
type Dispatcher struct {
	handlers map[string][]HandlerFunc
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	eventCh  chan DomainEvent
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given event buffer size.
func NewDispatcher(bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	return &Dispatcher{
		handlers: make(map[string][]HandlerFunc),
		stopCh:   make(chan struct{}),
		eventCh:  make(chan DomainEvent, bufferSize),
	}
}

// Subscribe registers a handler for an event type name. Must be called before
// Start; subscriptions are not synchronized against a running dispatcher.
func (d *Dispatcher) Subscribe(eventType string, handler HandlerFunc) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
	return nil
}

// Publish implements Publisher. Returns an error when the dispatcher is not
// running or the buffer is full; the producing operation is never blocked.
func (d *Dispatcher) Publish(ctx context.Context, event DomainEvent) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		return fmt.Errorf("event dispatcher is not running")
	}

	select {
	case d.eventCh <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event channel is full")
	}
}

// Start starts the dispatch loop.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("event dispatcher is already running")
	}

	d.running = true
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		d.loop()
	}()

	return nil
}

// Stop drains buffered events and stops the dispatch loop.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("event dispatcher is not running")
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopCh)
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) loop() {
	for {
		select {
		case <-d.stopCh:
			// Drain what is already buffered, then exit.
			for {
				select {
				case event := <-d.eventCh:
					d.dispatch(event)
				default:
					return
				}
			}
		case event := <-d.eventCh:
			d.dispatch(event)
		}
	}
}

func (d *Dispatcher) dispatch(event DomainEvent) {
	d.mu.RLock()
	handlers := append([]HandlerFunc(nil), d.handlers[event.GetEventType()]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		handler(context.Background(), event)
	}
}

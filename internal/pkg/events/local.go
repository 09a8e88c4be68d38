package events

import (
	"context"
	"errors"
	"sync"
)

// LocalBus delivers events synchronously to in-process subscribers.
type LocalBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Event)
	closed   bool
}

// NewLocalBus creates an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]func(Event))}
}

// Publish calls every registered handler in the caller's goroutine.
func (b *LocalBus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("event bus closed")
	}
	for _, h := range b.handlers {
		h(evt)
	}
	return nil
}

// StartForwarder registers onEvent until ctx is cancelled.
func (b *LocalBus) StartForwarder(ctx context.Context, onEvent func(evt Event)) error {
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("event bus closed")
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = onEvent
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()
	return nil
}

// Close drops all handlers.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[int]func(Event))
	return nil
}

package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"agent-chat-go/pkg/log"
)

// ErrQueueFull is returned when the async queue cannot take another event.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event publisher closed")

// AsyncPublisher queues events and hands them to the wrapped Publisher from
// a single goroutine, so Publish never waits on the bus. Events keep their
// publish order. When the queue is full the event is dropped.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan ChatEvent
	done   chan struct{}
}

// NewAsync starts the delivery goroutine. timeout bounds each call to next.
func NewAsync(next Publisher, buffer int, timeout time.Duration) *AsyncPublisher {
	p := &AsyncPublisher{
		next:    next,
		timeout: timeout,
		queue:   make(chan ChatEvent, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) Publish(_ context.Context, event ChatEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, event); err != nil {
			log.Warnw("failed to publish chat event", "type", event.Type, "chatID", event.ChatID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queue drains or ctx ends.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

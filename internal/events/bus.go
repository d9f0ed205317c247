package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler consumes a published event. Handlers run on the bus worker
// goroutine; slow handlers delay later events but never the emitters.
type Handler func(context.Context, Event)

// Bus is an asynchronous, fire-and-forget event fan-out. Emit queues the
// event and returns immediately; when the queue is full the event is dropped
// with a warning rather than blocking the resolution or escalation path.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	all      []Handler

	queue  chan Event
	done   chan struct{}
	closed sync.Once
	now    func() time.Time
	logger *slog.Logger
}

// NewBus constructs a Bus with the given queue depth and starts its worker.
// A non-positive buffer falls back to 64.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		handlers: make(map[Kind][]Handler),
		queue:    make(chan Event, buffer),
		done:     make(chan struct{}),
		now:      time.Now,
		logger:   logger,
	}
	go b.run()
	return b
}

// Subscribe registers a handler for a single event kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], handler)
	b.mu.Unlock()
}

// SubscribeAll registers a handler that receives every event kind.
func (b *Bus) SubscribeAll(handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.all = append(b.all, handler)
	b.mu.Unlock()
}

// Emit queues the event for delivery. It never blocks and never fails the
// caller: a saturated queue drops the event and logs a warning.
func (b *Bus) Emit(event Event) {
	if b == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}

	select {
	case b.queue <- event:
	case <-b.done:
	default:
		b.logger.Warn("event queue full, dropping event", "kind", event.Kind)
	}
}

// Close stops the worker after draining queued events.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.closed.Do(func() {
		close(b.done)
	})
}

func (b *Bus) run() {
	for {
		select {
		case event := <-b.queue:
			b.deliver(event)
		case <-b.done:
			// Drain whatever was queued before the close.
			for {
				select {
				case event := <-b.queue:
					b.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Kind]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	ctx := context.Background()
	for _, handler := range handlers {
		handler(ctx, event)
	}
}

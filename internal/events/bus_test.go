package events

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v", timeout)
}

func TestBus_DeliversToKindAndAllSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus(8, slog.Default())
	defer bus.Close()

	byKind := &recorder{}
	all := &recorder{}
	bus.Subscribe(KindOverrideCreated, byKind.handle)
	bus.SubscribeAll(all.handle)

	bus.Emit(Event{Kind: KindOverrideCreated, Payload: map[string]any{"override_id": "o-1"}})
	bus.Emit(Event{Kind: KindRotationCreated, Payload: map[string]any{"rotation_id": "r-1"}})

	waitFor(t, time.Second, func() bool { return len(all.snapshot()) == 2 })

	kindEvents := byKind.snapshot()
	if len(kindEvents) != 1 {
		t.Fatalf("kind subscriber should see exactly one event, got %d", len(kindEvents))
	}
	if kindEvents[0].Kind != KindOverrideCreated {
		t.Fatalf("unexpected kind %q", kindEvents[0].Kind)
	}
	if kindEvents[0].Timestamp.IsZero() {
		t.Fatal("bus should stamp events missing a timestamp")
	}
}

func TestBus_EmitNeverBlocksWhenSaturated(t *testing.T) {
	t.Parallel()

	bus := NewBus(1, slog.Default())
	defer bus.Close()

	release := make(chan struct{})
	bus.SubscribeAll(func(context.Context, Event) { <-release })

	// First event occupies the worker, second fills the queue; the rest must
	// drop instead of blocking the emitter.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 16; i++ {
			bus.Emit(Event{Kind: KindOnCallChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a saturated queue")
	}
	close(release)
}

func TestKind_Valid(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		if !kind.Valid() {
			t.Fatalf("defined kind %q reported invalid", kind)
		}
	}
	if Kind("made_up").Valid() {
		t.Fatal("unknown kind reported valid")
	}
}

package escalation

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/oncall-manager/internal/events"
)

// manualTimers captures armed callbacks so tests can drive expiry by hand.
type manualTimers struct {
	mu    sync.Mutex
	armed []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

func (m *manualTimers) factory(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	timer := &manualTimer{d: d, fn: fn}
	m.armed = append(m.armed, timer)
	return timer
}

// fire triggers the most recently armed timer.
func (m *manualTimers) fire(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	if len(m.armed) == 0 {
		m.mu.Unlock()
		t.Fatal("no timer armed")
	}
	timer := m.armed[len(m.armed)-1]
	m.mu.Unlock()
	timer.fn()
}

func (m *manualTimers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.armed)
}

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) Emit(event events.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *capturedEvents) snapshot() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

func newTestController(timers *manualTimers, captured *capturedEvents) *Controller {
	seq := 0
	idGen := func() string {
		seq++
		return fmt.Sprintf("run-%d", seq)
	}
	return NewController(captured, timers.factory, idGen, nil, nil)
}

func TestController_AdvancesThroughLevelsAndExhausts(t *testing.T) {
	t.Parallel()

	timers := &manualTimers{}
	captured := &capturedEvents{}
	c := newTestController(timers, captured)

	runID, err := c.Start("call-1", []Level{
		{UserID: "alice", Timeout: 30 * time.Second},
		{UserID: "bob", Timeout: 30 * time.Second},
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	snap, ok := c.Snapshot(runID)
	if !ok {
		t.Fatal("run not found after Start")
	}
	if snap.State != StatePending || snap.Level != 0 {
		t.Fatalf("fresh run should be pending at level 0, got %v/%d", snap.State, snap.Level)
	}
	if timers.count() != 1 {
		t.Fatalf("Start should arm one timer, got %d", timers.count())
	}

	// Level 0 times out: run advances to bob and re-arms.
	timers.fire(t)
	snap, _ = c.Snapshot(runID)
	if snap.State != StateEscalating || snap.Level != 1 {
		t.Fatalf("after first expiry expected escalating at level 1, got %v/%d", snap.State, snap.Level)
	}
	if timers.count() != 2 {
		t.Fatalf("advance should arm a new timer, got %d", timers.count())
	}

	// Level 1 times out: chain is exhausted, no new timer.
	timers.fire(t)
	snap, _ = c.Snapshot(runID)
	if snap.State != StateExhausted {
		t.Fatalf("expected exhausted, got %v", snap.State)
	}
	if timers.count() != 2 {
		t.Fatalf("exhaustion must not arm another timer, got %d", timers.count())
	}

	got := captured.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind != events.KindEscalationLevelAdvanced {
		t.Fatalf("first event should be level advance, got %q", got[0].Kind)
	}
	if got[0].Payload["user_id"] != "bob" || got[0].Payload["level"] != 1 {
		t.Fatalf("advance payload should target bob at level 1, got %v", got[0].Payload)
	}
	if got[1].Kind != events.KindEscalationExhausted {
		t.Fatalf("second event should be exhaustion, got %q", got[1].Kind)
	}
	if got[1].Payload["levels_tried"] != 2 {
		t.Fatalf("exhaustion payload should report 2 levels tried, got %v", got[1].Payload)
	}
}

func TestController_AnswerStopsTheChain(t *testing.T) {
	t.Parallel()

	timers := &manualTimers{}
	captured := &capturedEvents{}
	c := newTestController(timers, captured)

	runID, err := c.Start("call-2", []Level{
		{UserID: "alice", Timeout: 30 * time.Second},
		{UserID: "bob", Timeout: 30 * time.Second},
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// First level times out, bob is being tried when the answer arrives.
	timers.fire(t)
	if err := c.SignalAnswered(runID); err != nil {
		t.Fatalf("SignalAnswered returned error: %v", err)
	}

	snap, _ := c.Snapshot(runID)
	if snap.State != StateAnswered {
		t.Fatalf("expected answered, got %v", snap.State)
	}

	// A racing expiry after the answer must not advance or emit.
	timers.fire(t)
	snap, _ = c.Snapshot(runID)
	if snap.State != StateAnswered || snap.Level != 1 {
		t.Fatalf("late expiry must be ignored, got %v/%d", snap.State, snap.Level)
	}
	if len(captured.snapshot()) != 1 {
		t.Fatalf("only the single advance should have been emitted, got %d events", len(captured.snapshot()))
	}

	// Late duplicate answers are silent no-ops.
	if err := c.SignalAnswered(runID); err != nil {
		t.Fatalf("late SignalAnswered should be a no-op, got %v", err)
	}
}

func TestController_CallEndedCancelsAndRetiresRun(t *testing.T) {
	t.Parallel()

	timers := &manualTimers{}
	c := newTestController(timers, &capturedEvents{})

	runID, err := c.Start("call-3", []Level{{UserID: "alice", Timeout: 30 * time.Second}})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if c.ActiveRuns() != 1 {
		t.Fatalf("expected 1 active run, got %d", c.ActiveRuns())
	}

	if err := c.SignalCallEnded(runID); err != nil {
		t.Fatalf("SignalCallEnded returned error: %v", err)
	}
	if _, ok := c.Snapshot(runID); ok {
		t.Fatal("run should be retired after the call ended")
	}
	if c.ActiveRuns() != 0 {
		t.Fatalf("expected 0 active runs, got %d", c.ActiveRuns())
	}

	timers.mu.Lock()
	stopped := timers.armed[0].stopped
	timers.mu.Unlock()
	if !stopped {
		t.Fatal("call end must release the armed timer")
	}
}

func TestController_StartRejectsEmptyChain(t *testing.T) {
	t.Parallel()

	c := newTestController(&manualTimers{}, &capturedEvents{})
	if _, err := c.Start("call-4", nil); !errors.Is(err, ErrNoLevels) {
		t.Fatalf("expected ErrNoLevels, got %v", err)
	}
}

func TestController_UnknownRunSignals(t *testing.T) {
	t.Parallel()

	c := newTestController(&manualTimers{}, &capturedEvents{})
	if err := c.SignalAnswered("missing"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("expected ErrUnknownRun, got %v", err)
	}
	if err := c.SignalCallEnded("missing"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("expected ErrUnknownRun, got %v", err)
	}
	// Expiry for an unknown run must not panic.
	c.TimerExpired("missing")
}

func TestController_ZeroTimeoutFallsBackToDefault(t *testing.T) {
	t.Parallel()

	timers := &manualTimers{}
	c := newTestController(timers, &capturedEvents{})

	if _, err := c.Start("call-5", []Level{{UserID: "alice"}}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	timers.mu.Lock()
	d := timers.armed[0].d
	timers.mu.Unlock()
	if d != defaultLevelTimeout {
		t.Fatalf("zero timeout should arm the default, got %v", d)
	}
}

func TestController_IndependentRuns(t *testing.T) {
	t.Parallel()

	timers := &manualTimers{}
	c := newTestController(timers, &capturedEvents{})

	first, err := c.Start("call-a", []Level{{UserID: "alice", Timeout: time.Minute}, {UserID: "bob", Timeout: time.Minute}})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	second, err := c.Start("call-b", []Level{{UserID: "carol", Timeout: time.Minute}})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// Expire the second run only; the first must be untouched.
	timers.fire(t)
	snapFirst, _ := c.Snapshot(first)
	if snapFirst.State != StatePending || snapFirst.Level != 0 {
		t.Fatalf("first run should be untouched, got %v/%d", snapFirst.State, snapFirst.Level)
	}
	snapSecond, _ := c.Snapshot(second)
	if snapSecond.State != StateExhausted {
		t.Fatalf("second run should be exhausted, got %v", snapSecond.State)
	}
}

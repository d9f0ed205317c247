package escalation

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/oncall-manager/internal/events"
)

// State is the lifecycle phase of an escalation run.
type State int

const (
	// StatePending means the call was forwarded to level 0 and the first
	// timer is armed.
	StatePending State = iota
	// StateEscalating means at least one level timed out and a later level
	// is being tried.
	StateEscalating
	// StateAnswered is terminal: somebody picked up.
	StateAnswered
	// StateCancelled is terminal: the call ended before anyone answered.
	StateCancelled
	// StateExhausted is terminal: every level timed out.
	StateExhausted
)

// String returns a stable label for logging and payloads.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEscalating:
		return "escalating"
	case StateAnswered:
		return "answered"
	case StateCancelled:
		return "cancelled"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateAnswered || s == StateCancelled || s == StateExhausted
}

// Level is one step of an escalation chain.
type Level struct {
	UserID  string
	Timeout time.Duration
}

// Run is a read-only snapshot of an in-flight or completed escalation.
type Run struct {
	ID        string
	CallRef   string
	Levels    []Level
	Level     int
	State     State
	StartedAt time.Time
}

// Timer is the armed-timeout handle owned by a run.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn after d. Production wiring uses time.AfterFunc;
// tests substitute a manual trigger.
type TimerFactory func(d time.Duration, fn func()) Timer

// StdTimerFactory backs timers with time.AfterFunc.
func StdTimerFactory(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Emitter publishes notification events. Emission must never block the
// controller; the events bus satisfies this.
type Emitter interface {
	Emit(events.Event)
}

var (
	// ErrNoLevels indicates an escalation was started with an empty chain.
	ErrNoLevels = errors.New("escalation: no levels configured")
	// ErrUnknownRun indicates the run id does not exist in the controller.
	ErrUnknownRun = errors.New("escalation: unknown run")
)

const defaultLevelTimeout = 30 * time.Second

// Controller owns every in-flight escalation run. Runs advance independently
// and in parallel; within one run, timer expiries and external signals are
// serialized by the run's own lock so the level index has a single writer.
//
// A run stays in the table after reaching a terminal state so that late
// signals racing a timer expiry resolve to documented no-ops; the entry is
// removed when the telephony host reports the call ended.
type Controller struct {
	mu   sync.Mutex
	runs map[string]*run

	newTimer TimerFactory
	emit     Emitter
	id       func() string
	now      func() time.Time
	logger   *slog.Logger
}

type run struct {
	mu        sync.Mutex
	id        string
	callRef   string
	levels    []Level
	index     int
	state     State
	startedAt time.Time
	timer     Timer
}

// NewController wires an escalation controller. Nil dependencies fall back to
// production defaults except emit, which may be nil when notifications are
// disabled entirely.
func NewController(emit Emitter, newTimer TimerFactory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *Controller {
	if newTimer == nil {
		newTimer = StdTimerFactory
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		runs:     make(map[string]*run),
		newTimer: newTimer,
		emit:     emit,
		id:       idGenerator,
		now:      now,
		logger:   logger,
	}
}

// Start snapshots the supplied levels into a new run, arms the timer for
// level 0, and returns the run id. The chain is copied so later policy edits
// cannot affect calls already in flight.
func (c *Controller) Start(callRef string, levels []Level) (string, error) {
	if len(levels) == 0 {
		return "", ErrNoLevels
	}

	snapshot := make([]Level, len(levels))
	copy(snapshot, levels)
	for i := range snapshot {
		if snapshot[i].Timeout <= 0 {
			snapshot[i].Timeout = defaultLevelTimeout
		}
	}

	r := &run{
		id:        c.id(),
		callRef:   callRef,
		levels:    snapshot,
		state:     StatePending,
		startedAt: c.now(),
	}

	c.mu.Lock()
	c.runs[r.id] = r
	c.mu.Unlock()

	r.mu.Lock()
	r.timer = c.armTimerLocked(r)
	r.mu.Unlock()

	c.logger.Info("escalation started", "run_id", r.id, "call_ref", callRef, "levels", len(snapshot))
	return r.id, nil
}

// SignalAnswered marks the run answered and cancels its timer. Signals that
// arrive after the run reached a terminal state are no-ops, not errors:
// answers race timer expiries by design.
func (c *Controller) SignalAnswered(runID string) error {
	r, ok := c.lookup(runID)
	if !ok {
		return ErrUnknownRun
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.terminal() {
		return nil
	}
	c.stopTimerLocked(r)
	r.state = StateAnswered
	c.logger.Info("escalation answered", "run_id", r.id, "call_ref", r.callRef, "level", r.index)
	return nil
}

// SignalCallEnded cancels any armed timer, marks the run cancelled when it
// was still live, and retires the run. Failing to call this for an abandoned
// call would leak the armed timer, so the telephony host must invoke it on
// every teardown.
func (c *Controller) SignalCallEnded(runID string) error {
	r, ok := c.lookup(runID)
	if !ok {
		return ErrUnknownRun
	}

	r.mu.Lock()
	if !r.state.terminal() {
		c.stopTimerLocked(r)
		r.state = StateCancelled
		c.logger.Info("escalation cancelled", "run_id", r.id, "call_ref", r.callRef)
	}
	r.mu.Unlock()

	c.mu.Lock()
	delete(c.runs, runID)
	c.mu.Unlock()
	return nil
}

// TimerExpired advances the run one level. It is invoked by the armed timer
// and may also be driven directly by a host scheduler. Expiries racing a
// terminal transition are ignored.
func (c *Controller) TimerExpired(runID string) {
	r, ok := c.lookup(runID)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.terminal() {
		return
	}

	r.index++
	if r.index < len(r.levels) {
		r.state = StateEscalating
		level := r.levels[r.index]
		c.emitEvent(events.Event{
			Kind: events.KindEscalationLevelAdvanced,
			Payload: map[string]any{
				"run_id":          r.id,
				"call_ref":        r.callRef,
				"level":           r.index,
				"user_id":         level.UserID,
				"timeout_seconds": int(level.Timeout / time.Second),
			},
		})
		r.timer = c.armTimerLocked(r)
		c.logger.Info("escalation advanced", "run_id", r.id, "call_ref", r.callRef, "level", r.index, "user_id", level.UserID)
		return
	}

	r.index = len(r.levels) - 1
	r.state = StateExhausted
	c.emitEvent(events.Event{
		Kind: events.KindEscalationExhausted,
		Payload: map[string]any{
			"run_id":       r.id,
			"call_ref":     r.callRef,
			"levels_tried": len(r.levels),
		},
	})
	c.logger.Warn("escalation exhausted", "run_id", r.id, "call_ref", r.callRef, "levels", len(r.levels))
}

// Snapshot returns a copy of the run's current state.
func (c *Controller) Snapshot(runID string) (Run, bool) {
	r, ok := c.lookup(runID)
	if !ok {
		return Run{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	levels := make([]Level, len(r.levels))
	copy(levels, r.levels)
	return Run{
		ID:        r.id,
		CallRef:   r.callRef,
		Levels:    levels,
		Level:     r.index,
		State:     r.state,
		StartedAt: r.startedAt,
	}, true
}

// ActiveRuns counts runs that have not reached a terminal state.
func (c *Controller) ActiveRuns() int {
	c.mu.Lock()
	runs := make([]*run, 0, len(c.runs))
	for _, r := range c.runs {
		runs = append(runs, r)
	}
	c.mu.Unlock()

	active := 0
	for _, r := range runs {
		r.mu.Lock()
		if !r.state.terminal() {
			active++
		}
		r.mu.Unlock()
	}
	return active
}

func (c *Controller) lookup(runID string) (*run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.runs[runID]
	return r, ok
}

func (c *Controller) armTimerLocked(r *run) Timer {
	id := r.id
	return c.newTimer(r.levels[r.index].Timeout, func() {
		c.TimerExpired(id)
	})
}

func (c *Controller) stopTimerLocked(r *run) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (c *Controller) emitEvent(event events.Event) {
	if c.emit == nil {
		return
	}
	event.Timestamp = c.now()
	c.emit.Emit(event)
}

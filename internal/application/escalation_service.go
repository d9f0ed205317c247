package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/oncall-manager/internal/escalation"
)

// CallRecorder appends resolved calls to the capped call-history log.
// Recording is best-effort.
type CallRecorder interface {
	RecordCall(ctx context.Context, record CallRecord)
}

// EscalationService ties the resolver's dial plan to the escalation
// controller. It is the entry point the telephony host drives.
type EscalationService struct {
	resolver   *Resolver
	controller *escalation.Controller
	calls      CallRecorder
	now        func() time.Time
	logger     *slog.Logger
}

// NewEscalationService wires dependencies for the escalation service.
func NewEscalationService(resolver *Resolver, controller *escalation.Controller, calls CallRecorder, now func() time.Time, logger *slog.Logger) *EscalationService {
	if now == nil {
		now = time.Now
	}
	return &EscalationService{
		resolver:   resolver,
		controller: controller,
		calls:      calls,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

// StartedEscalation describes a freshly started run so the host can dial the
// first target while the controller tracks timeouts.
type StartedEscalation struct {
	RunID string
	Chain []ChainLink
}

// Start resolves the escalation chain for an inbound call and begins tracking
// it. The level-0 link is the user the host should dial first.
func (s *EscalationService) Start(ctx context.Context, callRef, caller string) (StartedEscalation, error) {
	if s == nil {
		return StartedEscalation{}, fmt.Errorf("EscalationService is nil")
	}

	chain, err := s.resolver.EscalationChain(ctx, s.now())
	if err != nil {
		return StartedEscalation{}, err
	}

	levels := make([]escalation.Level, 0, len(chain))
	for _, link := range chain {
		levels = append(levels, escalation.Level{UserID: link.UserID, Timeout: link.Timeout})
	}

	runID, err := s.controller.Start(callRef, levels)
	if err != nil {
		return StartedEscalation{}, err
	}

	s.recordCall(ctx, CallRecord{
		CallRef:    callRef,
		Caller:     caller,
		UserID:     chain[0].UserID,
		Source:     "escalation",
		Outcome:    "started",
		OccurredAt: s.now(),
	})
	return StartedEscalation{RunID: runID, Chain: chain}, nil
}

// Answered reports that somebody picked up.
func (s *EscalationService) Answered(ctx context.Context, runID string) error {
	if s == nil {
		return fmt.Errorf("EscalationService is nil")
	}
	if err := s.controller.SignalAnswered(runID); err != nil {
		return err
	}
	s.recordOutcome(ctx, runID, "answered")
	return nil
}

// CallEnded reports call teardown and releases the run.
func (s *EscalationService) CallEnded(ctx context.Context, runID string) error {
	if s == nil {
		return fmt.Errorf("EscalationService is nil")
	}
	run, known := s.controller.Snapshot(runID)
	if err := s.controller.SignalCallEnded(runID); err != nil {
		return err
	}
	outcome := "ended"
	if known && run.State == escalation.StateExhausted {
		outcome = "exhausted"
	}
	s.recordOutcome(ctx, runID, outcome)
	return nil
}

// Status returns the current state of a run for the host's status endpoint.
func (s *EscalationService) Status(runID string) (escalation.Run, bool) {
	if s == nil {
		return escalation.Run{}, false
	}
	return s.controller.Snapshot(runID)
}

func (s *EscalationService) recordOutcome(ctx context.Context, runID, outcome string) {
	s.recordCall(ctx, CallRecord{
		CallRef:    runID,
		Source:     "escalation",
		Outcome:    outcome,
		OccurredAt: s.now(),
	})
}

func (s *EscalationService) recordCall(ctx context.Context, record CallRecord) {
	if s.calls == nil {
		return
	}
	s.calls.RecordCall(ctx, record)
}

package application

import (
	"context"

	"github.com/example/oncall-manager/internal/events"
)

// AuditRecorder appends administrative actions to the audit log. Recording is
// best-effort; services never fail an operation over a full or broken log.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, actor, action, detail string)
}

// Notifier publishes schedule-change notifications. Implementations must not
// block the calling service.
type Notifier interface {
	UserCreated(user User)
	RotationCreated(rot Rotation)
	OverrideCreated(override Override)
	OnCallChanged(detail string)
	WebhookTest(webhookID string)
}

// EventNotifier adapts the notification bus to the Notifier interface.
type EventNotifier struct {
	bus *events.Bus
}

// NewEventNotifier wraps the bus. A nil bus yields a notifier whose methods
// are no-ops.
func NewEventNotifier(bus *events.Bus) *EventNotifier {
	return &EventNotifier{bus: bus}
}

func (n *EventNotifier) UserCreated(user User) {
	n.emit(events.Event{Kind: events.KindUserCreated, Payload: map[string]any{
		"user_id": user.ID,
		"name":    user.Name,
	}})
}

func (n *EventNotifier) RotationCreated(rot Rotation) {
	n.emit(events.Event{Kind: events.KindRotationCreated, Payload: map[string]any{
		"rotation_id": rot.ID,
		"name":        rot.Name,
		"cycle":       rot.Cycle.String(),
	}})
}

func (n *EventNotifier) OverrideCreated(override Override) {
	n.emit(events.Event{Kind: events.KindOverrideCreated, Payload: map[string]any{
		"override_id": override.ID,
		"user_id":     override.UserID,
		"start_at":    override.StartAt,
		"end_at":      override.EndAt,
	}})
}

func (n *EventNotifier) OnCallChanged(detail string) {
	n.emit(events.Event{Kind: events.KindOnCallChanged, Payload: map[string]any{
		"detail": detail,
	}})
}

func (n *EventNotifier) WebhookTest(webhookID string) {
	n.emit(events.Event{Kind: events.KindWebhookTest, Payload: map[string]any{
		"webhook_id": webhookID,
	}})
}

func (n *EventNotifier) emit(event events.Event) {
	if n == nil || n.bus == nil {
		return
	}
	n.bus.Emit(event)
}

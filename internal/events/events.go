package events

import "time"

// Kind identifies the category of a notification event.
type Kind string

const (
	// KindOnCallChanged signals that the current on-call assignment changed
	// through an administrative action.
	KindOnCallChanged Kind = "oncall_changed"
	// KindEscalationLevelAdvanced signals that an escalation run moved to
	// the next level without an answer.
	KindEscalationLevelAdvanced Kind = "escalation_level_advanced"
	// KindEscalationExhausted signals that every level of an escalation run
	// timed out without an answer.
	KindEscalationExhausted Kind = "escalation_exhausted"
	// KindOverrideCreated signals that a schedule override was created.
	KindOverrideCreated Kind = "override_created"
	// KindRotationCreated signals that a rotation was created.
	KindRotationCreated Kind = "rotation_created"
	// KindUserCreated signals that a user was created.
	KindUserCreated Kind = "user_created"
	// KindWebhookTest is emitted on demand to verify webhook delivery.
	KindWebhookTest Kind = "webhook_test"
)

// Kinds lists every defined event kind.
func Kinds() []Kind {
	return []Kind{
		KindOnCallChanged,
		KindEscalationLevelAdvanced,
		KindEscalationExhausted,
		KindOverrideCreated,
		KindRotationCreated,
		KindUserCreated,
		KindWebhookTest,
	}
}

// Valid reports whether the kind is one of the defined values.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Event is the unit handed to the notification pipeline. Payload keys are
// kind-specific and flat so every webhook format can render them.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   map[string]any
}

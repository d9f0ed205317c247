package application

import (
	"time"

	"github.com/example/oncall-manager/internal/events"
	"github.com/example/oncall-manager/internal/rotation"
)

// Principal identifies the actor performing an operation.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// User is an account that can appear in schedules and, when IsAdmin is set,
// manage them.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Timezone  string
	IsAdmin   bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput carries the mutable fields for creating or updating a user.
type UserInput struct {
	Name     string
	Email    string
	Phone    string
	Timezone string
	Password string
	IsAdmin  bool
	Active   bool
}

// Rotation is a recurring assignment cycle. MemberIDs preserves configured
// order; the calculator resolves activity against the user table. Inactive
// rotations keep their definition but never produce an assignee.
type Rotation struct {
	ID        string
	Name      string
	Cycle     rotation.CycleType
	StartDate time.Time
	MemberIDs []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RotationInput carries the mutable fields for creating or updating a rotation.
type RotationInput struct {
	Name      string
	Cycle     string
	StartDate time.Time
	MemberIDs []string
	Active    bool
}

// Override is a time-bounded assignment that beats rotations.
type Override struct {
	ID        string
	UserID    string
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
	CreatedAt time.Time
}

// OverrideInput carries the fields for creating an override.
type OverrideInput struct {
	UserID  string
	StartAt time.Time
	EndAt   time.Time
	Reason  string
}

// CalendarEntry pins one date to one user.
type CalendarEntry struct {
	Date   time.Time
	UserID string
}

// LegacyCell is one slot of the weekday/hour fallback table. StartHour is
// inclusive and EndHour exclusive, both on a 0-24 scale.
type LegacyCell struct {
	Weekday   time.Weekday
	StartHour int
	EndHour   int
	UserID    string
}

// ScheduleConfig holds resolution settings that are not per-record.
type ScheduleConfig struct {
	PrimaryUserID string
	SlotPolicy    rotation.SlotPolicy
}

// PolicyLevel is one step of the escalation chain.
type PolicyLevel struct {
	UserID  string
	Timeout time.Duration
}

// EscalationPolicy is the singleton escalation configuration.
type EscalationPolicy struct {
	Enabled bool
	Levels  []PolicyLevel
}

// Webhook is an outbound notification endpoint. An empty Events list
// subscribes the endpoint to every kind.
type Webhook struct {
	ID        string
	Name      string
	Type      string
	URL       string
	Enabled   bool
	Events    []events.Kind
	CreatedAt time.Time
}

// WebhookInput carries the fields for creating or updating a webhook.
type WebhookInput struct {
	Name    string
	Type    string
	URL     string
	Enabled bool
	Events  []string
}

// WebhookDelivery is one recorded delivery attempt.
type WebhookDelivery struct {
	ID          string
	WebhookID   string
	EventKind   string
	StatusCode  int
	Error       string
	DeliveredAt time.Time
}

// AuditEntry records one administrative action.
type AuditEntry struct {
	ID        string
	Actor     string
	Action    string
	Detail    string
	CreatedAt time.Time
}

// CallRecord records one resolved inbound call.
type CallRecord struct {
	ID         string
	CallRef    string
	Caller     string
	UserID     string
	Source     string
	Outcome    string
	OccurredAt time.Time
}

// Session is an authenticated admin session.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// ResolutionSource names the schedule layer that produced an assignment.
type ResolutionSource string

const (
	SourceManualCalendar ResolutionSource = "manual"
	SourceOverride       ResolutionSource = "override"
	SourceRotation       ResolutionSource = "rotation"
	SourceLegacy         ResolutionSource = "legacy"
	SourcePrimary        ResolutionSource = "fallback"
)

// Resolution is the answer to "who is on call at this instant".
type Resolution struct {
	UserID   string
	UserName string
	Source   ResolutionSource
	// SourceRef holds the id of the override or rotation that won, when one did.
	SourceRef string
	At        time.Time
}

// DialTarget is a resolution augmented with what the telephony host needs to
// place the call. LastResort is set when no schedule layer produced an
// assignee and the configured fallback number is used instead.
type DialTarget struct {
	UserID     string
	UserName   string
	Phone      string
	Source     ResolutionSource
	LastResort bool
}

// ChainLink is one dialable step of the effective escalation chain.
type ChainLink struct {
	Level   int
	UserID  string
	Name    string
	Phone   string
	Timeout time.Duration
}

// DayAssignment is one day of the calendar view.
type DayAssignment struct {
	Date     time.Time
	UserID   string
	UserName string
	Source   ResolutionSource
}

// Snapshot is a consistent copy of every schedule layer, read in one
// transaction.
type Snapshot struct {
	TakenAt   time.Time
	Users     []User
	Rotations []Rotation
	Overrides []Override
	Calendar  []CalendarEntry
	Legacy    []LegacyCell
	Config    ScheduleConfig
	Policy    EscalationPolicy
}

// ImportRowError explains why one CSV row was skipped.
type ImportRowError struct {
	Line   int
	Reason string
}

// ImportResult summarizes a calendar CSV import. Row failures never abort
// the batch.
type ImportResult struct {
	Imported int
	Skipped  []ImportRowError
}

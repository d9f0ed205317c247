package persistence

import "time"

// User is the storage representation of an account that can appear in
// schedules and sign in to the admin interface.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Timezone     string
	IsAdmin      bool
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rotation is a recurring assignment cycle. MemberIDs preserves the
// configured order; activity is resolved against the user table at read time.
type Rotation struct {
	ID        string
	Name      string
	Cycle     string
	StartDate time.Time
	MemberIDs []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Override is a time-bounded assignment that takes precedence over
// rotations.
type Override struct {
	ID        string
	UserID    string
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
	CreatedAt time.Time
}

// CalendarEntry pins a single date to a user. Date is normalized to midnight
// in the service timezone.
type CalendarEntry struct {
	Date      time.Time
	UserID    string
	CreatedAt time.Time
}

// LegacyScheduleEntry is one cell of the weekday/hour fallback table.
// Weekday follows time.Weekday numbering; StartHour is inclusive and
// EndHour exclusive on a 0-24 scale.
type LegacyScheduleEntry struct {
	Weekday   int
	StartHour int
	EndHour   int
	UserID    string
}

// ScheduleConfig holds the resolution settings that are not per-record:
// the final fallback assignee and the inactive-slot policy.
type ScheduleConfig struct {
	PrimaryUserID string
	SlotPolicy    string
	UpdatedAt     time.Time
}

// PolicyLevel is one step of the stored escalation chain.
type PolicyLevel struct {
	UserID         string
	TimeoutSeconds int
}

// EscalationPolicy is the singleton escalation configuration.
type EscalationPolicy struct {
	Enabled   bool
	Levels    []PolicyLevel
	UpdatedAt time.Time
}

// Webhook is an outbound notification endpoint. Events lists the event kinds
// the endpoint subscribed to; an empty list means every kind.
type Webhook struct {
	ID        string
	Name      string
	Type      string
	URL       string
	Enabled   bool
	Events    []string
	CreatedAt time.Time
}

// WebhookDelivery records one delivery attempt for the inspection log.
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

// CallHistoryEntry records one resolved inbound call.
type CallHistoryEntry struct {
	ID         string
	CallRef    string
	Caller     string
	UserID     string
	Source     string
	Outcome    string
	OccurredAt time.Time
}

// Session is an authenticated admin session keyed by an opaque token.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Snapshot is a point-in-time copy of every table the resolver consults.
// Reading it inside one transaction keeps a resolution internally consistent
// even while admins edit the schedule.
type Snapshot struct {
	TakenAt   time.Time
	Users     []User
	Rotations []Rotation
	Overrides []Override
	Calendar  []CalendarEntry
	Legacy    []LegacyScheduleEntry
	Config    ScheduleConfig
	Policy    EscalationPolicy
}

package persistence

import (
	"context"
	"time"
)

// UserRepository manages user records.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// RotationRepository manages rotation definitions. List returns rotations in
// creation order, which is also their precedence order.
type RotationRepository interface {
	Create(ctx context.Context, rotation *Rotation) error
	GetByID(ctx context.Context, id string) (*Rotation, error)
	List(ctx context.Context) ([]*Rotation, error)
	Update(ctx context.Context, rotation *Rotation) error
	Delete(ctx context.Context, id string) error
}

// OverrideRepository manages time-bounded overrides.
type OverrideRepository interface {
	Create(ctx context.Context, override *Override) error
	GetByID(ctx context.Context, id string) (*Override, error)
	List(ctx context.Context) ([]*Override, error)
	ListActiveAt(ctx context.Context, at time.Time) ([]*Override, error)
	Delete(ctx context.Context, id string) error
}

// CalendarRepository manages per-date manual assignments.
type CalendarRepository interface {
	Upsert(ctx context.Context, entry *CalendarEntry) error
	GetByDate(ctx context.Context, date time.Time) (*CalendarEntry, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*CalendarEntry, error)
	DeleteByDate(ctx context.Context, date time.Time) error
}

// LegacyScheduleRepository manages the weekday/hour fallback table and the
// schedule-wide configuration.
type LegacyScheduleRepository interface {
	ReplaceAll(ctx context.Context, entries []LegacyScheduleEntry) error
	List(ctx context.Context) ([]LegacyScheduleEntry, error)
	GetConfig(ctx context.Context) (*ScheduleConfig, error)
	SaveConfig(ctx context.Context, config *ScheduleConfig) error
}

// PolicyRepository manages the singleton escalation policy.
type PolicyRepository interface {
	Get(ctx context.Context) (*EscalationPolicy, error)
	Save(ctx context.Context, policy *EscalationPolicy) error
}

// WebhookRepository manages webhook endpoints and their delivery log.
// RecordDelivery prunes the log to the retention cap.
type WebhookRepository interface {
	Create(ctx context.Context, webhook *Webhook) error
	GetByID(ctx context.Context, id string) (*Webhook, error)
	List(ctx context.Context) ([]*Webhook, error)
	Update(ctx context.Context, webhook *Webhook) error
	Delete(ctx context.Context, id string) error
	RecordDelivery(ctx context.Context, delivery *WebhookDelivery) error
	ListDeliveries(ctx context.Context, limit int) ([]*WebhookDelivery, error)
}

// LogRepository manages the capped audit and call-history logs. Append
// operations prune entries beyond the retention cap.
type LogRepository interface {
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error)
	AppendCall(ctx context.Context, entry *CallHistoryEntry) error
	ListCalls(ctx context.Context, limit int) ([]*CallHistoryEntry, error)
}

// SessionRepository manages admin session tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) error
}

// SnapshotReader produces a consistent snapshot of the schedule state for
// resolution. Implementations read every table inside a single read-only
// transaction.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

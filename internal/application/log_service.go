package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogStore captures the persistence operations for the capped audit and
// call-history logs.
type LogStore interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	AppendCall(ctx context.Context, record CallRecord) error
	ListCalls(ctx context.Context, limit int) ([]CallRecord, error)
}

// LogService records and lists operational history. Writes are best-effort:
// a failed append is logged and swallowed so it can never fail the operation
// being recorded.
type LogService struct {
	store       LogStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewLogService wires dependencies for the log service.
func NewLogService(store LogStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LogService{store: store, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// RecordAudit implements AuditRecorder.
func (s *LogService) RecordAudit(ctx context.Context, actor, action, detail string) {
	if s == nil || s.store == nil {
		return
	}
	entry := AuditEntry{
		ID:        s.idGenerator(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		serviceLogger(ctx, s.logger, "logs", "record_audit").Warn("audit append failed", "error", err)
	}
}

// RecordCall implements CallRecorder.
func (s *LogService) RecordCall(ctx context.Context, record CallRecord) {
	if s == nil || s.store == nil {
		return
	}
	if record.ID == "" {
		record.ID = s.idGenerator()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = s.now()
	}
	if err := s.store.AppendCall(ctx, record); err != nil {
		serviceLogger(ctx, s.logger, "logs", "record_call").Warn("call append failed", "error", err)
	}
}

// ListAudit returns the most recent audit entries, newest first.
func (s *LogService) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("LogService is nil")
	}
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListAudit(ctx, limit)
}

// ListCalls returns the most recent call records, newest first.
func (s *LogService) ListCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("LogService is nil")
	}
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListCalls(ctx, limit)
}

package sqlite

import (
	"context"

	"github.com/example/oncall-manager/internal/persistence"
)

// Retention caps for the operational logs.
const (
	auditRetention = 1000
	callRetention  = 500
)

// LogRepository implements persistence.LogRepository on SQLite.
type LogRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewLogRepository creates a SQLite log repository.
func NewLogRepository(pool *ConnectionPool) *LogRepository {
	return &LogRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// AppendAudit inserts an audit entry and prunes the log to its cap.
func (r *LogRepository) AppendAudit(ctx context.Context, entry *persistence.AuditEntry) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO audit_log (id, actor, action, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Actor, entry.Action, entry.Detail, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	_, err = r.helper.Exec(ctx, `
		DELETE FROM audit_log WHERE id NOT IN (
			SELECT id FROM audit_log ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, auditRetention)
	return r.mapper.MapError(err)
}

// ListAudit returns the most recent audit entries, newest first.
func (r *LogRepository) ListAudit(ctx context.Context, limit int) ([]*persistence.AuditEntry, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, actor, action, detail, created_at
		FROM audit_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []*persistence.AuditEntry
	for rows.Next() {
		var (
			entry   persistence.AuditEntry
			created string
		)
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.Detail, &created); err != nil {
			return nil, err
		}
		entry.CreatedAt = parseTime(created)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// AppendCall inserts a call record and prunes the history to its cap.
func (r *LogRepository) AppendCall(ctx context.Context, entry *persistence.CallHistoryEntry) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO call_history (id, call_ref, caller, user_id, source, outcome, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CallRef, entry.Caller, entry.UserID,
		entry.Source, entry.Outcome, formatTime(entry.OccurredAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	_, err = r.helper.Exec(ctx, `
		DELETE FROM call_history WHERE id NOT IN (
			SELECT id FROM call_history ORDER BY occurred_at DESC, rowid DESC LIMIT ?
		)`, callRetention)
	return r.mapper.MapError(err)
}

// ListCalls returns the most recent call records, newest first.
func (r *LogRepository) ListCalls(ctx context.Context, limit int) ([]*persistence.CallHistoryEntry, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, call_ref, caller, user_id, source, outcome, occurred_at
		FROM call_history ORDER BY occurred_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []*persistence.CallHistoryEntry
	for rows.Next() {
		var (
			entry    persistence.CallHistoryEntry
			occurred string
		)
		if err := rows.Scan(&entry.ID, &entry.CallRef, &entry.Caller, &entry.UserID,
			&entry.Source, &entry.Outcome, &occurred); err != nil {
			return nil, err
		}
		entry.OccurredAt = parseTime(occurred)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

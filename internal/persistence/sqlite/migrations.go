package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrations holds the ordered schema versions. Each entry is applied in its
// own transaction and recorded in schema_migrations.
var migrations = []struct {
	version    int
	statements []string
}{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				timezone TEXT NOT NULL DEFAULT '',
				is_admin INTEGER NOT NULL DEFAULT 0,
				active INTEGER NOT NULL DEFAULT 1,
				password_hash TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS rotations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				cycle TEXT NOT NULL,
				start_date TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS rotation_members (
				rotation_id TEXT NOT NULL REFERENCES rotations(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				user_id TEXT NOT NULL REFERENCES users(id),
				PRIMARY KEY (rotation_id, position)
			)`,
			`CREATE TABLE IF NOT EXISTS overrides (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				start_at TEXT NOT NULL,
				end_at TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS calendar_entries (
				date TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS legacy_schedule (
				weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
				start_hour INTEGER NOT NULL CHECK (start_hour BETWEEN 0 AND 23),
				end_hour INTEGER NOT NULL CHECK (end_hour BETWEEN 1 AND 24 AND end_hour > start_hour),
				user_id TEXT NOT NULL REFERENCES users(id),
				PRIMARY KEY (weekday, start_hour)
			)`,
			`CREATE TABLE IF NOT EXISTS schedule_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				primary_user_id TEXT NOT NULL DEFAULT '',
				slot_policy TEXT NOT NULL DEFAULT 'consume',
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS escalation_policy (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				enabled INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS escalation_levels (
				position INTEGER PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				timeout_seconds INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS webhooks (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				url TEXT NOT NULL,
				enabled INTEGER NOT NULL DEFAULT 1,
				events TEXT NOT NULL DEFAULT '[]',
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS webhook_deliveries (
				id TEXT PRIMARY KEY,
				webhook_id TEXT NOT NULL,
				event_kind TEXT NOT NULL,
				status_code INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				delivered_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS audit_log (
				id TEXT PRIMARY KEY,
				actor TEXT NOT NULL DEFAULT '',
				action TEXT NOT NULL,
				detail TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS call_history (
				id TEXT PRIMARY KEY,
				call_ref TEXT NOT NULL DEFAULT '',
				caller TEXT NOT NULL DEFAULT '',
				user_id TEXT NOT NULL DEFAULT '',
				source TEXT NOT NULL DEFAULT '',
				outcome TEXT NOT NULL DEFAULT '',
				occurred_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				token TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at TEXT NOT NULL,
				expires_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_overrides_window ON overrides(start_at, end_at)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at)`,
		},
	},
}

// Migrate brings the schema up to the current version.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(ctx, pool, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d: %w", m.version, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				m.version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, pool *ConnectionPool, version int) (bool, error) {
	var count int
	err := pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return count > 0, nil
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/oncall-manager/internal/persistence"
)

// LegacyScheduleRepository implements persistence.LegacyScheduleRepository on SQLite.
type LegacyScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewLegacyScheduleRepository creates a SQLite legacy-schedule repository.
func NewLegacyScheduleRepository(pool *ConnectionPool) *LegacyScheduleRepository {
	return &LegacyScheduleRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// ReplaceAll swaps the whole weekday/hour table atomically.
func (r *LegacyScheduleRepository) ReplaceAll(ctx context.Context, entries []persistence.LegacyScheduleEntry) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM legacy_schedule`); err != nil {
			return err
		}
		for _, entry := range entries {
			if _, err := tx.Exec(`
				INSERT INTO legacy_schedule (weekday, start_hour, end_hour, user_id) VALUES (?, ?, ?, ?)`,
				entry.Weekday, entry.StartHour, entry.EndHour, entry.UserID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return r.mapper.MapError(err)
}

// List returns the weekday/hour table ordered by slot.
func (r *LegacyScheduleRepository) List(ctx context.Context) ([]persistence.LegacyScheduleEntry, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT weekday, start_hour, end_hour, user_id FROM legacy_schedule ORDER BY weekday, start_hour`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.LegacyScheduleEntry
	for rows.Next() {
		var entry persistence.LegacyScheduleEntry
		if err := rows.Scan(&entry.Weekday, &entry.StartHour, &entry.EndHour, &entry.UserID); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetConfig returns the singleton schedule config.
func (r *LegacyScheduleRepository) GetConfig(ctx context.Context) (*persistence.ScheduleConfig, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT primary_user_id, slot_policy, updated_at FROM schedule_config WHERE id = 1`)
	var (
		config  persistence.ScheduleConfig
		updated string
	)
	if err := row.Scan(&config.PrimaryUserID, &config.SlotPolicy, &updated); err != nil {
		return nil, r.mapper.MapError(err)
	}
	config.UpdatedAt = parseTime(updated)
	return &config, nil
}

// SaveConfig writes the singleton schedule config.
func (r *LegacyScheduleRepository) SaveConfig(ctx context.Context, config *persistence.ScheduleConfig) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO schedule_config (id, primary_user_id, slot_policy, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			primary_user_id = excluded.primary_user_id,
			slot_policy = excluded.slot_policy,
			updated_at = excluded.updated_at`,
		config.PrimaryUserID, config.SlotPolicy, formatTime(config.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// PolicyRepository implements persistence.PolicyRepository on SQLite.
type PolicyRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPolicyRepository creates a SQLite escalation-policy repository.
func NewPolicyRepository(pool *ConnectionPool) *PolicyRepository {
	return &PolicyRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Get returns the singleton escalation policy with its levels.
func (r *PolicyRepository) Get(ctx context.Context) (*persistence.EscalationPolicy, error) {
	row := r.helper.QueryRow(ctx, `SELECT enabled, updated_at FROM escalation_policy WHERE id = 1`)
	var (
		policy  persistence.EscalationPolicy
		updated string
	)
	if err := row.Scan(&policy.Enabled, &updated); err != nil {
		return nil, r.mapper.MapError(err)
	}
	policy.UpdatedAt = parseTime(updated)

	rows, err := r.helper.Query(ctx, `
		SELECT user_id, timeout_seconds FROM escalation_levels ORDER BY position`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var level persistence.PolicyLevel
		if err := rows.Scan(&level.UserID, &level.TimeoutSeconds); err != nil {
			return nil, err
		}
		policy.Levels = append(policy.Levels, level)
	}
	return &policy, rows.Err()
}

// Save replaces the singleton escalation policy and its levels atomically.
func (r *PolicyRepository) Save(ctx context.Context, policy *persistence.EscalationPolicy) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO escalation_policy (id, enabled, updated_at) VALUES (1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
			policy.Enabled, formatTime(policy.UpdatedAt),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM escalation_levels`); err != nil {
			return err
		}
		for position, level := range policy.Levels {
			if _, err := tx.Exec(`
				INSERT INTO escalation_levels (position, user_id, timeout_seconds) VALUES (?, ?, ?)`,
				position, level.UserID, level.TimeoutSeconds,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return r.mapper.MapError(err)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/oncall-manager/internal/persistence"
)

// SnapshotReader implements persistence.SnapshotReader by reading every
// schedule table inside one read-only transaction, so a resolution can never
// observe a half-applied edit.
type SnapshotReader struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	now    func() time.Time
}

// NewSnapshotReader creates a SQLite snapshot reader.
func NewSnapshotReader(pool *ConnectionPool, now func() time.Time) *SnapshotReader {
	if now == nil {
		now = time.Now
	}
	return &SnapshotReader{pool: pool, mapper: NewErrorMapper(), now: now}
}

// Snapshot reads a consistent copy of the schedule state.
func (r *SnapshotReader) Snapshot(ctx context.Context) (*persistence.Snapshot, error) {
	snap := &persistence.Snapshot{TakenAt: r.now()}

	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.readUsers(tx, snap); err != nil {
			return err
		}
		if err := r.readRotations(tx, snap); err != nil {
			return err
		}
		if err := r.readOverrides(tx, snap); err != nil {
			return err
		}
		if err := r.readCalendar(tx, snap); err != nil {
			return err
		}
		if err := r.readLegacy(tx, snap); err != nil {
			return err
		}
		if err := r.readConfig(tx, snap); err != nil {
			return err
		}
		return r.readPolicy(tx, snap)
	})
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return snap, nil
}

func (r *SnapshotReader) readUsers(tx *sql.Tx, snap *persistence.Snapshot) error {
	rows, err := tx.Query(`SELECT id, name, email, phone, timezone, is_admin, active FROM users`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var user persistence.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Timezone,
			&user.IsAdmin, &user.Active); err != nil {
			return err
		}
		snap.Users = append(snap.Users, user)
	}
	return rows.Err()
}

func (r *SnapshotReader) readRotations(tx *sql.Tx, snap *persistence.Snapshot) error {
	rows, err := tx.Query(`
		SELECT id, name, cycle, start_date, active, created_at, updated_at
		FROM rotations ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		rotation, err := scanRotation(rows)
		if err != nil {
			return err
		}
		snap.Rotations = append(snap.Rotations, *rotation)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range snap.Rotations {
		memberRows, err := tx.Query(`
			SELECT user_id FROM rotation_members WHERE rotation_id = ? ORDER BY position`,
			snap.Rotations[i].ID)
		if err != nil {
			return err
		}
		for memberRows.Next() {
			var userID string
			if err := memberRows.Scan(&userID); err != nil {
				memberRows.Close()
				return err
			}
			snap.Rotations[i].MemberIDs = append(snap.Rotations[i].MemberIDs, userID)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return err
		}
		memberRows.Close()
	}
	return nil
}

func (r *SnapshotReader) readOverrides(tx *sql.Tx, snap *persistence.Snapshot) error {
	rows, err := tx.Query(overrideSelect)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return err
		}
		snap.Overrides = append(snap.Overrides, *override)
	}
	return rows.Err()
}

func (r *SnapshotReader) readCalendar(tx *sql.Tx, snap *persistence.Snapshot) error {
	rows, err := tx.Query(`SELECT date, user_id, created_at FROM calendar_entries`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		entry, err := scanCalendarEntry(rows)
		if err != nil {
			return err
		}
		snap.Calendar = append(snap.Calendar, *entry)
	}
	return rows.Err()
}

func (r *SnapshotReader) readLegacy(tx *sql.Tx, snap *persistence.Snapshot) error {
	rows, err := tx.Query(`SELECT weekday, start_hour, end_hour, user_id FROM legacy_schedule`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var entry persistence.LegacyScheduleEntry
		if err := rows.Scan(&entry.Weekday, &entry.StartHour, &entry.EndHour, &entry.UserID); err != nil {
			return err
		}
		snap.Legacy = append(snap.Legacy, entry)
	}
	return rows.Err()
}

func (r *SnapshotReader) readConfig(tx *sql.Tx, snap *persistence.Snapshot) error {
	var updated string
	err := tx.QueryRow(`SELECT primary_user_id, slot_policy, updated_at FROM schedule_config WHERE id = 1`).
		Scan(&snap.Config.PrimaryUserID, &snap.Config.SlotPolicy, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	snap.Config.UpdatedAt = parseTime(updated)
	return nil
}

func (r *SnapshotReader) readPolicy(tx *sql.Tx, snap *persistence.Snapshot) error {
	var updated string
	err := tx.QueryRow(`SELECT enabled, updated_at FROM escalation_policy WHERE id = 1`).
		Scan(&snap.Policy.Enabled, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	snap.Policy.UpdatedAt = parseTime(updated)

	rows, err := tx.Query(`SELECT user_id, timeout_seconds FROM escalation_levels ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var level persistence.PolicyLevel
		if err := rows.Scan(&level.UserID, &level.TimeoutSeconds); err != nil {
			return err
		}
		snap.Policy.Levels = append(snap.Policy.Levels, level)
	}
	return rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/oncall-manager/internal/persistence"
)

const dateLayout = "2006-01-02"

// RotationRepository implements persistence.RotationRepository on SQLite.
type RotationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRotationRepository creates a SQLite rotation repository.
func NewRotationRepository(pool *ConnectionPool) *RotationRepository {
	return &RotationRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Create inserts a rotation and its member sequence atomically.
func (r *RotationRepository) Create(ctx context.Context, rotation *persistence.Rotation) error {
	if rotation.ID == "" {
		return persistence.ErrConstraintViolation
	}
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO rotations (id, name, cycle, start_date, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rotation.ID, rotation.Name, rotation.Cycle,
			rotation.StartDate.UTC().Format(dateLayout), rotation.Active,
			formatTime(rotation.CreatedAt), formatTime(rotation.UpdatedAt),
		); err != nil {
			return err
		}
		return insertMembers(tx, rotation.ID, rotation.MemberIDs)
	})
	return r.mapper.MapError(err)
}

// GetByID fetches one rotation with its sequence.
func (r *RotationRepository) GetByID(ctx context.Context, id string) (*persistence.Rotation, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT id, name, cycle, start_date, active, created_at, updated_at FROM rotations WHERE id = ?`, id)
	rotation, err := scanRotation(row)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	if err := r.loadMembers(ctx, rotation); err != nil {
		return nil, err
	}
	return rotation, nil
}

// List returns rotations in creation order with their sequences.
func (r *RotationRepository) List(ctx context.Context) ([]*persistence.Rotation, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, cycle, start_date, active, created_at, updated_at
		FROM rotations ORDER BY created_at, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rotations []*persistence.Rotation
	for rows.Next() {
		rotation, err := scanRotation(rows)
		if err != nil {
			return nil, err
		}
		rotations = append(rotations, rotation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, rotation := range rotations {
		if err := r.loadMembers(ctx, rotation); err != nil {
			return nil, err
		}
	}
	return rotations, nil
}

// Update rewrites a rotation and replaces its sequence atomically.
func (r *RotationRepository) Update(ctx context.Context, rotation *persistence.Rotation) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE rotations SET name = ?, cycle = ?, start_date = ?, active = ?, updated_at = ? WHERE id = ?`,
			rotation.Name, rotation.Cycle,
			rotation.StartDate.UTC().Format(dateLayout), rotation.Active,
			formatTime(rotation.UpdatedAt), rotation.ID,
		)
		if err != nil {
			return err
		}
		if err := requireRows(result); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM rotation_members WHERE rotation_id = ?`, rotation.ID); err != nil {
			return err
		}
		return insertMembers(tx, rotation.ID, rotation.MemberIDs)
	})
	return r.mapper.MapError(err)
}

// Delete removes a rotation; members cascade.
func (r *RotationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM rotations WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

func insertMembers(tx *sql.Tx, rotationID string, memberIDs []string) error {
	for position, userID := range memberIDs {
		if _, err := tx.Exec(`
			INSERT INTO rotation_members (rotation_id, position, user_id) VALUES (?, ?, ?)`,
			rotationID, position, userID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *RotationRepository) loadMembers(ctx context.Context, rotation *persistence.Rotation) error {
	rows, err := r.helper.Query(ctx, `
		SELECT user_id FROM rotation_members WHERE rotation_id = ? ORDER BY position`, rotation.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		rotation.MemberIDs = append(rotation.MemberIDs, userID)
	}
	return rows.Err()
}

func scanRotation(scanner rowScanner) (*persistence.Rotation, error) {
	var (
		rotation  persistence.Rotation
		startDate string
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&rotation.ID, &rotation.Name, &rotation.Cycle,
		&startDate, &rotation.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rotation.StartDate, _ = time.Parse(dateLayout, startDate)
	rotation.CreatedAt = parseTime(createdAt)
	rotation.UpdatedAt = parseTime(updatedAt)
	return &rotation, nil
}

// OverrideRepository implements persistence.OverrideRepository on SQLite.
type OverrideRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOverrideRepository creates a SQLite override repository.
func NewOverrideRepository(pool *ConnectionPool) *OverrideRepository {
	return &OverrideRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Create inserts an override.
func (r *OverrideRepository) Create(ctx context.Context, override *persistence.Override) error {
	if override.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO overrides (id, user_id, start_at, end_at, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		override.ID, override.UserID,
		formatTime(override.StartAt), formatTime(override.EndAt),
		override.Reason, formatTime(override.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetByID fetches one override.
func (r *OverrideRepository) GetByID(ctx context.Context, id string) (*persistence.Override, error) {
	row := r.helper.QueryRow(ctx, overrideSelect+` WHERE id = ?`, id)
	override, err := scanOverride(row)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return override, nil
}

// List returns every override, newest window first.
func (r *OverrideRepository) List(ctx context.Context) ([]*persistence.Override, error) {
	return r.queryOverrides(ctx, overrideSelect+` ORDER BY start_at DESC, id DESC`)
}

// ListActiveAt returns overrides whose window covers the instant.
func (r *OverrideRepository) ListActiveAt(ctx context.Context, at time.Time) ([]*persistence.Override, error) {
	stamp := formatTime(at)
	return r.queryOverrides(ctx,
		overrideSelect+` WHERE start_at <= ? AND end_at > ? ORDER BY start_at DESC, id DESC`,
		stamp, stamp)
}

// Delete removes an override.
func (r *OverrideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM overrides WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

const overrideSelect = `SELECT id, user_id, start_at, end_at, reason, created_at FROM overrides`

func (r *OverrideRepository) queryOverrides(ctx context.Context, query string, args ...any) ([]*persistence.Override, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var overrides []*persistence.Override
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	return overrides, rows.Err()
}

func scanOverride(scanner rowScanner) (*persistence.Override, error) {
	var (
		override persistence.Override
		startAt  string
		endAt    string
		created  string
	)
	if err := scanner.Scan(&override.ID, &override.UserID, &startAt, &endAt,
		&override.Reason, &created); err != nil {
		return nil, err
	}
	override.StartAt = parseTime(startAt)
	override.EndAt = parseTime(endAt)
	override.CreatedAt = parseTime(created)
	return &override, nil
}

// CalendarRepository implements persistence.CalendarRepository on SQLite.
type CalendarRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCalendarRepository creates a SQLite calendar repository.
func NewCalendarRepository(pool *ConnectionPool) *CalendarRepository {
	return &CalendarRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Upsert writes the manual assignment for a date, replacing any existing one.
func (r *CalendarRepository) Upsert(ctx context.Context, entry *persistence.CalendarEntry) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO calendar_entries (date, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET user_id = excluded.user_id, created_at = excluded.created_at`,
		entry.Date.Format(dateLayout), entry.UserID, formatTime(entry.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetByDate fetches the manual assignment for a date.
func (r *CalendarRepository) GetByDate(ctx context.Context, date time.Time) (*persistence.CalendarEntry, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT date, user_id, created_at FROM calendar_entries WHERE date = ?`,
		date.Format(dateLayout))
	entry, err := scanCalendarEntry(row)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entry, nil
}

// ListRange returns the manual assignments with dates in [from, to].
func (r *CalendarRepository) ListRange(ctx context.Context, from, to time.Time) ([]*persistence.CalendarEntry, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT date, user_id, created_at FROM calendar_entries
		WHERE date >= ? AND date <= ? ORDER BY date`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []*persistence.CalendarEntry
	for rows.Next() {
		entry, err := scanCalendarEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteByDate removes the manual assignment for a date.
func (r *CalendarRepository) DeleteByDate(ctx context.Context, date time.Time) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM calendar_entries WHERE date = ?`, date.Format(dateLayout))
	return r.mapper.MapError(err)
}

func scanCalendarEntry(scanner rowScanner) (*persistence.CalendarEntry, error) {
	var (
		entry   persistence.CalendarEntry
		date    string
		created string
	)
	if err := scanner.Scan(&date, &entry.UserID, &created); err != nil {
		return nil, err
	}
	entry.Date, _ = time.Parse(dateLayout, date)
	entry.CreatedAt = parseTime(created)
	return &entry, nil
}

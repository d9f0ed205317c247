package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/oncall-manager/internal/persistence"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UserRepository implements persistence.UserRepository on SQLite.
type UserRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO users (id, name, email, phone, timezone, is_admin, active, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Phone, user.Timezone,
		user.IsAdmin, user.Active, user.PasswordHash,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetByID fetches one user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*persistence.User, error) {
	row := r.helper.QueryRow(ctx, userSelect+` WHERE id = ?`, id)
	return r.scanUser(row)
}

// GetByName fetches one user by its unique name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*persistence.User, error) {
	row := r.helper.QueryRow(ctx, userSelect+` WHERE name = ?`, name)
	return r.scanUser(row)
}

// List returns every user ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]*persistence.User, error) {
	rows, err := r.helper.Query(ctx, userSelect+` ORDER BY name`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []*persistence.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update rewrites a user. An empty PasswordHash keeps the stored hash.
func (r *UserRepository) Update(ctx context.Context, user *persistence.User) error {
	var (
		result sql.Result
		err    error
	)
	if user.PasswordHash == "" {
		result, err = r.helper.Exec(ctx, `
			UPDATE users SET name = ?, email = ?, phone = ?, timezone = ?, is_admin = ?, active = ?, updated_at = ?
			WHERE id = ?`,
			user.Name, user.Email, user.Phone, user.Timezone, user.IsAdmin, user.Active,
			formatTime(user.UpdatedAt), user.ID,
		)
	} else {
		result, err = r.helper.Exec(ctx, `
			UPDATE users SET name = ?, email = ?, phone = ?, timezone = ?, is_admin = ?, active = ?, password_hash = ?, updated_at = ?
			WHERE id = ?`,
			user.Name, user.Email, user.Phone, user.Timezone, user.IsAdmin, user.Active,
			user.PasswordHash, formatTime(user.UpdatedAt), user.ID,
		)
	}
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

const userSelect = `SELECT id, name, email, phone, timezone, is_admin, active, password_hash, created_at, updated_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row *sql.Row) (*persistence.User, error) {
	user, err := scanUserRow(row)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return user, nil
}

func scanUserRow(scanner rowScanner) (*persistence.User, error) {
	var (
		user       persistence.User
		createdAt  string
		updatedAt  string
	)
	err := scanner.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Timezone,
		&user.IsAdmin, &user.Active, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)
	return &user, nil
}

func requireRows(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

package sqlite

import (
	"context"
	"time"

	"github.com/example/oncall-manager/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository on SQLite.
type SessionRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *persistence.Session) error {
	if session.Token == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID,
		formatTime(session.CreatedAt), formatTime(session.ExpiresAt),
	)
	return r.mapper.MapError(err)
}

// GetByToken fetches a session.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*persistence.Session, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token)
	var (
		session persistence.Session
		created string
		expires string
	)
	if err := row.Scan(&session.Token, &session.UserID, &created, &expires); err != nil {
		return nil, r.mapper.MapError(err)
	}
	session.CreatedAt = parseTime(created)
	session.ExpiresAt = parseTime(expires)
	return &session, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

// DeleteExpired removes sessions that expired before the given instant.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(before))
	return r.mapper.MapError(err)
}

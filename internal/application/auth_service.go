package application

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CredentialRepository captures the lookups the auth service needs.
type CredentialRepository interface {
	// GetUserWithHash returns the user and its stored password hash.
	GetUserWithHash(ctx context.Context, name string) (User, string, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionStore persists opaque session tokens.
type SessionStore interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) error
}

// AuthService handles sign-in, sign-out, and session verification.
type AuthService struct {
	creds          CredentialRepository
	sessions       SessionStore
	audit          AuditRecorder
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
}

// NewAuthService wires dependencies for the auth service. A non-positive TTL
// falls back to 12 hours.
func NewAuthService(creds CredentialRepository, sessions SessionStore, audit AuditRecorder, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &AuthService{
		creds:          creds,
		sessions:       sessions,
		audit:          audit,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
	}
}

// Login verifies credentials and opens a session. Unknown names and bad
// passwords collapse into ErrInvalidCredentials so callers cannot enumerate
// accounts.
func (s *AuthService) Login(ctx context.Context, name, password string) (Session, User, error) {
	if s == nil {
		return Session{}, User{}, fmt.Errorf("AuthService is nil")
	}

	user, hash, err := s.creds.GetUserWithHash(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, User{}, ErrInvalidCredentials
		}
		return Session{}, User{}, err
	}
	if hash == "" {
		return Session{}, User{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(hash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return Session{}, User{}, ErrInvalidCredentials
		}
		return Session{}, User{}, err
	}
	if !user.Active {
		return Session{}, User{}, ErrAccountDisabled
	}

	now := s.now()
	session := Session{
		Token:     s.tokenGenerator(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return Session{}, User{}, err
	}

	// Opportunistic cleanup keeps the table from accumulating stale tokens.
	_ = s.sessions.DeleteExpiredSessions(ctx, now)

	if s.audit != nil {
		s.audit.RecordAudit(ctx, user.ID, "auth.login", user.Name)
	}
	return session, user, nil
}

// Logout deletes the session for the token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	err := s.sessions.DeleteSession(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Authenticate resolves a session token into the acting principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.sessions.DeleteSession(ctx, token)
		return Principal{}, ErrSessionExpired
	}

	user, err := s.creds.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !user.Active {
		return Principal{}, ErrAccountDisabled
	}
	return Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
	UpdateUser(ctx context.Context, user User, passwordHash string) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users       UserRepository
	audit       AuditRecorder
	notify      Notifier
	idGenerator func() string
	now         func() time.Time
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, audit AuditRecorder, notify Notifier, idGenerator func() string, now func() time.Time) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, audit: audit, notify: notify, idGenerator: idGenerator, now: now}
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, principal Principal, input UserInput) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return User{}, ErrUnauthorized
	}

	normalized := normalizeUserInput(input)
	vErr := validateUserInput(normalized, true)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := HashPassword(normalized.Password, DefaultArgon2idParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:        s.idGenerator(),
		Name:      normalized.Name,
		Email:     normalized.Email,
		Phone:     normalized.Phone,
		Timezone:  normalized.Timezone,
		IsAdmin:   normalized.IsAdmin,
		Active:    normalized.Active,
		CreatedAt: s.now(),
	}
	user.UpdatedAt = user.CreatedAt

	persisted, err := s.users.CreateUser(ctx, user, hash)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			vErr := &ValidationError{}
			vErr.add("name", "a user with this name already exists")
			return User{}, vErr
		}
		return User{}, err
	}

	s.recordAudit(ctx, principal, "user.create", persisted.Name)
	s.notifyUserCreated(persisted)
	return persisted, nil
}

// UpdateUser validates input and updates an existing user for administrators.
// An empty password keeps the stored hash.
func (s *UserService) UpdateUser(ctx context.Context, principal Principal, userID string, input UserInput) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return User{}, ErrUnauthorized
	}

	existing, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}

	normalized := normalizeUserInput(input)
	vErr := validateUserInput(normalized, false)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash := ""
	if normalized.Password != "" {
		hash, err = HashPassword(normalized.Password, DefaultArgon2idParams)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
	}

	updated := existing
	updated.Name = normalized.Name
	updated.Email = normalized.Email
	updated.Phone = normalized.Phone
	updated.Timezone = normalized.Timezone
	updated.IsAdmin = normalized.IsAdmin
	updated.Active = normalized.Active
	updated.UpdatedAt = s.now()

	persisted, err := s.users.UpdateUser(ctx, updated, hash)
	if err != nil {
		return User{}, err
	}

	s.recordAudit(ctx, principal, "user.update", persisted.Name)
	return persisted, nil
}

// DeleteUser removes a user when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if principal.UserID == userID {
		vErr := &ValidationError{}
		vErr.add("user_id", "administrators cannot delete their own account")
		return vErr
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, principal, "user.delete", userID)
	return nil
}

// GetUser fetches one user.
func (s *UserService) GetUser(ctx context.Context, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	return s.users.GetUser(ctx, userID)
}

// ListUsers returns every user ordered by name.
func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *UserService) recordAudit(ctx context.Context, principal Principal, action, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.RecordAudit(ctx, principal.UserID, action, detail)
}

func (s *UserService) notifyUserCreated(user User) {
	if s.notify == nil {
		return
	}
	s.notify.UserCreated(user)
}

func normalizeUserInput(input UserInput) UserInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Timezone = strings.TrimSpace(input.Timezone)
	return input
}

func validateUserInput(input UserInput, passwordRequired bool) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 100 {
		vErr.add("name", "name must be 100 characters or fewer")
	}
	if input.Email != "" && !validEmail(input.Email) {
		vErr.add("email", "email must look like name@host")
	}
	if input.Phone != "" && !validPhone(input.Phone) {
		vErr.add("phone", "phone must contain only digits, spaces, and + - ( )")
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			vErr.add("timezone", "unknown timezone")
		}
	}
	if passwordRequired && input.Password == "" {
		vErr.add("password", "password is required")
	}
	if input.Password != "" && len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	return vErr
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func validPhone(phone string) bool {
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return true
}

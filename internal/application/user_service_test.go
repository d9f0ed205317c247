package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubUserRepo struct {
	users  map[string]User
	hashes map[string]string
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]User), hashes: make(map[string]string)}
}

func (r *stubUserRepo) CreateUser(_ context.Context, user User, hash string) (User, error) {
	for _, existing := range r.users {
		if existing.Name == user.Name {
			return User{}, ErrAlreadyExists
		}
	}
	r.users[user.ID] = user
	r.hashes[user.ID] = hash
	return user, nil
}

func (r *stubUserRepo) GetUser(_ context.Context, id string) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *stubUserRepo) GetUserByName(_ context.Context, name string) (User, error) {
	for _, user := range r.users {
		if user.Name == name {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *stubUserRepo) UpdateUser(_ context.Context, user User, hash string) (User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return User{}, ErrNotFound
	}
	r.users[user.ID] = user
	if hash != "" {
		r.hashes[user.ID] = hash
	}
	return user, nil
}

func (r *stubUserRepo) DeleteUser(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) ListUsers(_ context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

var admin = Principal{UserID: "admin-1", IsAdmin: true}

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, nil, sequentialIDs("user"), func() time.Time { return fixedNow() })

	user, err := svc.CreateUser(context.Background(), admin, UserInput{
		Name:     "  alice  ",
		Phone:    "+1 555 000 1111",
		Timezone: "America/Chicago",
		Password: "correct horse",
		Active:   true,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Name != "alice" {
		t.Fatalf("name should be trimmed, got %q", user.Name)
	}
	if !user.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("CreatedAt should come from the injected clock, got %v", user.CreatedAt)
	}
	if repo.hashes[user.ID] == "" || !strings.HasPrefix(repo.hashes[user.ID], "$argon2id$") {
		t.Fatalf("password should be stored as an argon2id hash, got %q", repo.hashes[user.ID])
	}
}

func TestUserService_CreateUserValidation(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newStubUserRepo(), nil, nil, nil, nil)

	_, err := svc.CreateUser(context.Background(), admin, UserInput{
		Name:     "",
		Email:    "not-an-email",
		Phone:    "not-a-phone!",
		Timezone: "Mars/Olympus",
		Password: "short",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "email", "phone", "timezone", "password"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected a field error for %q, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestUserService_CreateUserKeepsEmail(t *testing.T) {
	t.Parallel()

	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, nil, sequentialIDs("user"), nil)

	user, err := svc.CreateUser(context.Background(), admin, UserInput{
		Name:     "alice",
		Email:    " alice@example.com ",
		Password: "correct horse",
		Active:   true,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email should be trimmed and stored, got %q", user.Email)
	}
}

func TestUserService_CreateUserDuplicateName(t *testing.T) {
	t.Parallel()

	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, nil, sequentialIDs("user"), nil)
	input := UserInput{Name: "alice", Password: "correct horse", Active: true}

	if _, err := svc.CreateUser(context.Background(), admin, input); err != nil {
		t.Fatalf("first create returned error: %v", err)
	}
	_, err := svc.CreateUser(context.Background(), admin, input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("duplicate name should surface as validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["name"]; !ok {
		t.Fatalf("expected name field error, got %v", vErr.FieldErrors)
	}
}

func TestUserService_NonAdminRejected(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newStubUserRepo(), nil, nil, nil, nil)
	viewer := Principal{UserID: "u-1"}

	if _, err := svc.CreateUser(context.Background(), viewer, UserInput{Name: "x", Password: "longenough"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteUser(context.Background(), viewer, "u-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_DeleteOwnAccountRejected(t *testing.T) {
	t.Parallel()

	repo := newStubUserRepo()
	repo.users["admin-1"] = User{ID: "admin-1", Name: "root", IsAdmin: true, Active: true}
	svc := NewUserService(repo, nil, nil, nil, nil)

	err := svc.DeleteUser(context.Background(), admin, "admin-1")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("self-delete should fail validation, got %v", err)
	}
}

func TestUserService_UpdateKeepsHashWhenPasswordEmpty(t *testing.T) {
	t.Parallel()

	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, nil, sequentialIDs("user"), nil)

	user, err := svc.CreateUser(context.Background(), admin, UserInput{Name: "alice", Password: "correct horse", Active: true})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	originalHash := repo.hashes[user.ID]

	if _, err := svc.UpdateUser(context.Background(), admin, user.ID, UserInput{Name: "alice2", Active: true}); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if repo.hashes[user.ID] != originalHash {
		t.Fatal("empty password must keep the stored hash")
	}
	if repo.users[user.ID].Name != "alice2" {
		t.Fatalf("name not updated: %q", repo.users[user.ID].Name)
	}
}

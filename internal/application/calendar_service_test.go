package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubCalendarRepo struct {
	entries map[string]CalendarEntry
}

func newStubCalendarRepo() *stubCalendarRepo {
	return &stubCalendarRepo{entries: make(map[string]CalendarEntry)}
}

func (r *stubCalendarRepo) key(date time.Time) string {
	return date.Format("2006-01-02")
}

func (r *stubCalendarRepo) UpsertCalendarEntry(_ context.Context, entry CalendarEntry) error {
	r.entries[r.key(entry.Date)] = entry
	return nil
}

func (r *stubCalendarRepo) GetCalendarEntry(_ context.Context, date time.Time) (CalendarEntry, error) {
	entry, ok := r.entries[r.key(date)]
	if !ok {
		return CalendarEntry{}, ErrNotFound
	}
	return entry, nil
}

func (r *stubCalendarRepo) DeleteCalendarEntry(_ context.Context, date time.Time) error {
	delete(r.entries, r.key(date))
	return nil
}

func (r *stubCalendarRepo) ListCalendarEntries(_ context.Context, from, to time.Time) ([]CalendarEntry, error) {
	var out []CalendarEntry
	for _, entry := range r.entries {
		if !entry.Date.Before(from) && !entry.Date.After(to) {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubDirectory struct {
	byID   map[string]User
	byName map[string]User
}

func newStubDirectory(users ...User) *stubDirectory {
	d := &stubDirectory{byID: make(map[string]User), byName: make(map[string]User)}
	for _, u := range users {
		d.byID[u.ID] = u
		d.byName[u.Name] = u
	}
	return d
}

func (d *stubDirectory) GetUser(_ context.Context, id string) (User, error) {
	if u, ok := d.byID[id]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func (d *stubDirectory) GetUserByName(_ context.Context, name string) (User, error) {
	if u, ok := d.byName[name]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func TestCalendarService_ImportMixedRows(t *testing.T) {
	t.Parallel()

	repo := newStubCalendarRepo()
	dir := newStubDirectory(
		User{ID: "u-alice", Name: "alice", Active: true},
		User{ID: "u-bob", Name: "bob", Active: true},
	)
	svc := NewCalendarService(repo, dir, nil, nil, time.UTC, nil)

	csvBody := strings.Join([]string{
		"date,name",
		"2025-06-01,alice",
		"2025-06-02,u-bob",
		"2025-06-03,ghost",
		"not-a-date,alice",
		"2025-06-05,bob",
	}, "\n")

	result, err := svc.Import(context.Background(), admin, strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Imported != 3 {
		t.Fatalf("expected 3 imported rows, got %d (skipped: %+v)", result.Imported, result.Skipped)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %+v", result.Skipped)
	}
	if result.Skipped[0].Line != 4 || result.Skipped[1].Line != 5 {
		t.Fatalf("skip lines wrong: %+v", result.Skipped)
	}

	// Name and id references both land on the right users.
	if repo.entries["2025-06-01"].UserID != "u-alice" {
		t.Fatalf("name reference not resolved: %+v", repo.entries["2025-06-01"])
	}
	if repo.entries["2025-06-02"].UserID != "u-bob" {
		t.Fatalf("id reference not resolved: %+v", repo.entries["2025-06-02"])
	}
}

func TestCalendarService_ImportHeaderRow(t *testing.T) {
	t.Parallel()

	repo := newStubCalendarRepo()
	dir := newStubDirectory(User{ID: "u-alice", Name: "alice", Active: true})
	svc := NewCalendarService(repo, dir, nil, nil, time.UTC, nil)

	// Any first row whose date column does not parse counts as a header,
	// whatever it is called.
	csvBody := "day,assignee\n2025-06-01,alice\n"
	result, err := svc.Import(context.Background(), admin, strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Imported != 1 || len(result.Skipped) != 0 {
		t.Fatalf("header row must be skipped silently, got %+v", result)
	}

	// A first row that parses as a date is data, not a header.
	repo = newStubCalendarRepo()
	svc = NewCalendarService(repo, dir, nil, nil, time.UTC, nil)
	result, err = svc.Import(context.Background(), admin, strings.NewReader("2025-06-02,alice\n"))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("dated first row must import, got %+v", result)
	}
}

func TestCalendarService_ImportRequiresAdmin(t *testing.T) {
	t.Parallel()

	svc := NewCalendarService(newStubCalendarRepo(), newStubDirectory(), nil, nil, time.UTC, nil)
	_, err := svc.Import(context.Background(), Principal{UserID: "u-1"}, strings.NewReader("2025-06-01,alice"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCalendarService_SetAndClearDay(t *testing.T) {
	t.Parallel()

	repo := newStubCalendarRepo()
	dir := newStubDirectory(User{ID: "u-alice", Name: "alice", Active: true})
	svc := NewCalendarService(repo, dir, nil, nil, time.UTC, nil)
	ctx := context.Background()

	day := time.Date(2025, time.June, 10, 18, 30, 0, 0, time.UTC)
	if err := svc.SetDay(ctx, admin, day, "u-alice"); err != nil {
		t.Fatalf("SetDay returned error: %v", err)
	}
	// The instant is normalized to its date.
	if _, ok := repo.entries["2025-06-10"]; !ok {
		t.Fatalf("entry not stored under its date: %v", repo.entries)
	}

	if err := svc.SetDay(ctx, admin, day, "ghost"); err == nil {
		t.Fatal("unknown user should fail validation")
	}

	if err := svc.ClearDay(ctx, admin, day); err != nil {
		t.Fatalf("ClearDay returned error: %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("entry not cleared: %v", repo.entries)
	}
}

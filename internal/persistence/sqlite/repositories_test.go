package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/oncall-manager/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()
	pool, err := NewConnectionPool(":memory:")
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, pool *ConnectionPool, id, name string) {
	t.Helper()
	repo := NewUserRepository(pool)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	err := repo.Create(context.Background(), &persistence.User{
		ID:           id,
		Name:         name,
		Active:       true,
		PasswordHash: "$argon2id$stub",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestUserRepository_RoundTrip(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	user := &persistence.User{
		ID:           "u-1",
		Name:         "alice",
		Email:        "alice@example.com",
		Phone:        "+15550001",
		Timezone:     "America/Chicago",
		IsAdmin:      true,
		Active:       true,
		PasswordHash: "$argon2id$stub",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "alice" || !got.IsAdmin || got.Phone != "+15550001" || got.Email != "alice@example.com" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("timestamp mismatch: %v", got.CreatedAt)
	}

	byName, err := repo.GetByName(ctx, "alice")
	if err != nil || byName.ID != "u-1" {
		t.Fatalf("GetByName: %v %+v", err, byName)
	}

	// Empty hash on update keeps the stored one.
	got.Name = "alice2"
	got.PasswordHash = ""
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err := repo.GetByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if updated.Name != "alice2" || updated.PasswordHash != "$argon2id$stub" {
		t.Fatalf("update mismatch: %+v", updated)
	}
}

func TestUserRepository_ErrorMapping(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	seedUser(t, pool, "u-1", "alice")

	err := repo.Create(ctx, &persistence.User{
		ID: "u-2", Name: "alice", PasswordHash: "$argon2id$stub",
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("duplicate name should map to ErrDuplicate, got %v", err)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("missing user should map to ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("deleting a missing user should map to ErrNotFound, got %v", err)
	}
}

func TestRotationRepository_PreservesMemberOrder(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRotationRepository(pool)
	ctx := context.Background()
	for _, name := range []string{"alice", "bob", "carol"} {
		seedUser(t, pool, "u-"+name, name)
	}

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	first := &persistence.Rotation{
		ID: "rot-1", Name: "weekly", Cycle: "weekly",
		StartDate: base, MemberIDs: []string{"u-carol", "u-alice", "u-bob"},
		Active:    true,
		CreatedAt: base, UpdatedAt: base,
	}
	second := &persistence.Rotation{
		ID: "rot-2", Name: "daily", Cycle: "daily",
		StartDate: base, MemberIDs: []string{"u-bob"},
		CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	rotations, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rotations) != 2 || rotations[0].ID != "rot-1" || rotations[1].ID != "rot-2" {
		t.Fatalf("creation order not preserved: %+v", rotations)
	}
	if !rotations[0].Active || rotations[1].Active {
		t.Fatalf("active flags not persisted: %+v", rotations)
	}
	want := []string{"u-carol", "u-alice", "u-bob"}
	for i, id := range rotations[0].MemberIDs {
		if id != want[i] {
			t.Fatalf("member order mismatch: %v", rotations[0].MemberIDs)
		}
	}

	// Deleting the rotation cascades its members.
	if err := repo.Delete(ctx, "rot-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "rot-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("deleted rotation should be gone, got %v", err)
	}
}

func TestCalendarRepository_UpsertReplaces(t *testing.T) {
	pool := newTestPool(t)
	repo := NewCalendarRepository(pool)
	ctx := context.Background()
	seedUser(t, pool, "u-1", "alice")
	seedUser(t, pool, "u-2", "bob")

	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	if err := repo.Upsert(ctx, &persistence.CalendarEntry{Date: day, UserID: "u-1", CreatedAt: day}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &persistence.CalendarEntry{Date: day, UserID: "u-2", CreatedAt: day}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	entry, err := repo.GetByDate(ctx, day)
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if entry.UserID != "u-2" {
		t.Fatalf("upsert should replace the assignee, got %q", entry.UserID)
	}
}

func TestSnapshotReader_ReadsAllLayers(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	seedUser(t, pool, "u-1", "alice")
	seedUser(t, pool, "u-2", "bob")

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if err := NewRotationRepository(pool).Create(ctx, &persistence.Rotation{
		ID: "rot-1", Name: "daily", Cycle: "daily", StartDate: base, Active: true,
		MemberIDs: []string{"u-1", "u-2"}, CreatedAt: base, UpdatedAt: base,
	}); err != nil {
		t.Fatalf("create rotation: %v", err)
	}
	if err := NewOverrideRepository(pool).Create(ctx, &persistence.Override{
		ID: "ov-1", UserID: "u-2", StartAt: base, EndAt: base.Add(24 * time.Hour), CreatedAt: base,
	}); err != nil {
		t.Fatalf("create override: %v", err)
	}
	legacy := NewLegacyScheduleRepository(pool)
	if err := legacy.ReplaceAll(ctx, []persistence.LegacyScheduleEntry{
		{Weekday: 5, StartHour: 9, EndHour: 17, UserID: "u-1"},
	}); err != nil {
		t.Fatalf("replace legacy: %v", err)
	}
	if err := legacy.SaveConfig(ctx, &persistence.ScheduleConfig{
		PrimaryUserID: "u-1", SlotPolicy: "consume", UpdatedAt: base,
	}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if err := NewPolicyRepository(pool).Save(ctx, &persistence.EscalationPolicy{
		Enabled:   true,
		Levels:    []persistence.PolicyLevel{{UserID: "u-2", TimeoutSeconds: 45}},
		UpdatedAt: base,
	}); err != nil {
		t.Fatalf("save policy: %v", err)
	}

	snap, err := NewSnapshotReader(pool, func() time.Time { return base }).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Users) != 2 || len(snap.Rotations) != 1 || len(snap.Overrides) != 1 {
		t.Fatalf("snapshot incomplete: %+v", snap)
	}
	if len(snap.Rotations[0].MemberIDs) != 2 || !snap.Rotations[0].Active {
		t.Fatalf("rotation members missing: %+v", snap.Rotations[0])
	}
	if len(snap.Legacy) != 1 || snap.Legacy[0].EndHour != 17 || snap.Config.PrimaryUserID != "u-1" {
		t.Fatalf("legacy/config missing: %+v", snap)
	}
	if !snap.Policy.Enabled || len(snap.Policy.Levels) != 1 || snap.Policy.Levels[0].TimeoutSeconds != 45 {
		t.Fatalf("policy missing: %+v", snap.Policy)
	}
}

func TestLogRepository_CapsHistory(t *testing.T) {
	pool := newTestPool(t)
	repo := NewLogRepository(pool)
	ctx := context.Background()
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	// Insert a handful past a small window and confirm newest-first listing.
	for i := 0; i < 5; i++ {
		err := repo.AppendAudit(ctx, &persistence.AuditEntry{
			ID:        string(rune('a' + i)),
			Action:    "test",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}
	entries, err := repo.ListAudit(ctx, 3)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != "e" || entries[2].ID != "c" {
		t.Fatalf("newest-first listing wrong: %+v", entries)
	}
}

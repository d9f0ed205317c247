package rotation

import (
	"errors"
	"testing"
	"time"
)

func members(ids ...string) []Member {
	out := make([]Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, Member{UserID: id, Active: true})
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculator_UserAt_WeeklyCycle(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(time.UTC, SlotConsume)
	rot := Rotation{
		ID:        "rot-1",
		Cycle:     CycleWeekly,
		StartDate: date(2025, time.March, 3), // a Monday
		Sequence:  members("alice", "bob", "carol"),
	}

	cases := []struct {
		at   time.Time
		want string
	}{
		{date(2025, time.March, 3), "alice"},
		{date(2025, time.March, 10), "bob"},
		{date(2025, time.March, 17), "carol"},
		{date(2025, time.March, 24), "alice"},
		// Mid-week instants stay within the same turn.
		{date(2025, time.March, 9), "alice"},
		{date(2025, time.March, 16).Add(23 * time.Hour), "carol"},
	}

	for _, tc := range cases {
		got, err := calc.UserAt(rot, tc.at)
		if err != nil {
			t.Fatalf("UserAt(%v) returned error: %v", tc.at, err)
		}
		if got != tc.want {
			t.Fatalf("UserAt(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestCalculator_UserAt_MonthlyCycleIgnoresDayOfMonth(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(time.UTC, SlotConsume)
	rot := Rotation{
		ID:        "rot-2",
		Cycle:     CycleMonthly,
		StartDate: date(2025, time.January, 15),
		Sequence:  members("alice", "bob"),
	}

	got, err := calc.UserAt(rot, date(2025, time.February, 20))
	if err != nil {
		t.Fatalf("UserAt returned error: %v", err)
	}
	if got != "bob" {
		t.Fatalf("one month elapsed should select bob, got %q", got)
	}

	// Earlier day-of-month in the same month counts as one full month too.
	got, err = calc.UserAt(rot, date(2025, time.February, 1))
	if err != nil {
		t.Fatalf("UserAt returned error: %v", err)
	}
	if got != "bob" {
		t.Fatalf("month roll should ignore day alignment, got %q", got)
	}
}

func TestCalculator_UserAt_DailyAndYearly(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(time.UTC, SlotConsume)

	daily := Rotation{Cycle: CycleDaily, StartDate: date(2025, time.June, 1), Sequence: members("a", "b", "c")}
	got, err := calc.UserAt(daily, date(2025, time.June, 5))
	if err != nil {
		t.Fatalf("daily UserAt returned error: %v", err)
	}
	if got != "b" {
		t.Fatalf("4 days elapsed mod 3 should select b, got %q", got)
	}

	yearly := Rotation{Cycle: CycleYearly, StartDate: date(2020, time.December, 31), Sequence: members("a", "b")}
	got, err = calc.UserAt(yearly, date(2023, time.January, 1))
	if err != nil {
		t.Fatalf("yearly UserAt returned error: %v", err)
	}
	if got != "b" {
		t.Fatalf("3 years elapsed mod 2 should select b, got %q", got)
	}
}

func TestCalculator_UserAt_BeforeStartUsesFlooredModulo(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(time.UTC, SlotConsume)
	rot := Rotation{
		Cycle:     CycleWeekly,
		StartDate: date(2025, time.March, 3),
		Sequence:  members("alice", "bob", "carol"),
	}

	// One week before the start: elapsed = -1, floored modulo selects the tail.
	got, err := calc.UserAt(rot, date(2025, time.February, 24))
	if err != nil {
		t.Fatalf("UserAt before start returned error: %v", err)
	}
	if got != "carol" {
		t.Fatalf("elapsed -1 should wrap to carol, got %q", got)
	}

	// Partial week before the start still belongs to the -1 turn.
	got, err = calc.UserAt(rot, date(2025, time.March, 2))
	if err != nil {
		t.Fatalf("UserAt before start returned error: %v", err)
	}
	if got != "carol" {
		t.Fatalf("partial week before start should wrap to carol, got %q", got)
	}
}

func TestCalculator_UserAt_InactiveSlotPolicies(t *testing.T) {
	t.Parallel()

	seq := []Member{
		{UserID: "alice", Active: true},
		{UserID: "bob", Active: false},
		{UserID: "carol", Active: true},
	}
	rot := Rotation{Cycle: CycleDaily, StartDate: date(2025, time.June, 1), Sequence: seq}

	// Day 1 lands on bob's slot. Consume policy keeps the slot numbering and
	// falls forward to carol; reassign renumbers over [alice carol] and keeps
	// bob out of the arithmetic entirely.
	consume := NewCalculator(time.UTC, SlotConsume)
	got, err := consume.UserAt(rot, date(2025, time.June, 2))
	if err != nil {
		t.Fatalf("consume UserAt returned error: %v", err)
	}
	if got != "carol" {
		t.Fatalf("consume policy should fall forward to carol, got %q", got)
	}

	reassign := NewCalculator(time.UTC, SlotReassign)
	got, err = reassign.UserAt(rot, date(2025, time.June, 2))
	if err != nil {
		t.Fatalf("reassign UserAt returned error: %v", err)
	}
	if got != "carol" {
		t.Fatalf("reassign policy on day 1 over two actives should select carol, got %q", got)
	}

	got, err = reassign.UserAt(rot, date(2025, time.June, 3))
	if err != nil {
		t.Fatalf("reassign UserAt returned error: %v", err)
	}
	if got != "alice" {
		t.Fatalf("reassign policy on day 2 should wrap to alice, got %q", got)
	}
}

func TestCalculator_UserAt_ErrorCases(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(time.UTC, SlotConsume)

	_, err := calc.UserAt(Rotation{Cycle: CycleDaily, StartDate: date(2025, time.June, 1)}, date(2025, time.June, 2))
	if !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}

	_, err = calc.UserAt(Rotation{Cycle: CycleUnspecified, StartDate: date(2025, time.June, 1), Sequence: members("a")}, date(2025, time.June, 2))
	if !errors.Is(err, ErrInvalidCycle) {
		t.Fatalf("expected ErrInvalidCycle, got %v", err)
	}

	allInactive := Rotation{
		Cycle:     CycleDaily,
		StartDate: date(2025, time.June, 1),
		Sequence:  []Member{{UserID: "a"}, {UserID: "b"}},
	}
	_, err = calc.UserAt(allInactive, date(2025, time.June, 2))
	if !errors.Is(err, ErrNoActiveMembers) {
		t.Fatalf("expected ErrNoActiveMembers, got %v", err)
	}
}

func TestCalculator_TimezoneGovernsDateDerivation(t *testing.T) {
	t.Parallel()

	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	calc := NewCalculator(chicago, SlotConsume)
	rot := Rotation{
		Cycle:     CycleDaily,
		StartDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, chicago),
		Sequence:  members("alice", "bob"),
	}

	// 03:00 UTC on June 2 is still June 1 in Chicago.
	got, err := calc.UserAt(rot, time.Date(2025, time.June, 2, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("UserAt returned error: %v", err)
	}
	if got != "alice" {
		t.Fatalf("instant should resolve within the start day in Chicago, got %q", got)
	}
}

func TestParseCycleType(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"daily", "weekly", "monthly", "yearly"} {
		cycle, err := ParseCycleType(name)
		if err != nil {
			t.Fatalf("ParseCycleType(%q) returned error: %v", name, err)
		}
		if cycle.String() != name {
			t.Fatalf("round trip mismatch: %q -> %q", name, cycle.String())
		}
	}

	if _, err := ParseCycleType("hourly"); !errors.Is(err, ErrInvalidCycle) {
		t.Fatalf("expected ErrInvalidCycle for unknown name, got %v", err)
	}
}

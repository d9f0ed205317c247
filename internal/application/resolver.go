package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/oncall-manager/internal/rotation"
)

// SnapshotSource produces a consistent snapshot of every schedule layer.
// The resolver performs exactly one read per request so concurrent edits can
// never mix layers from different states.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Resolver answers "who is on call" by walking the schedule layers in
// precedence order: manual calendar, overrides, rotations, the legacy
// weekday/hour table, then the configured primary fallback.
type Resolver struct {
	source           SnapshotSource
	location         *time.Location
	lastResortNumber string
	logger           *slog.Logger
}

// NewResolver wires a resolver. A nil location falls back to UTC.
func NewResolver(source SnapshotSource, location *time.Location, lastResortNumber string, logger *slog.Logger) *Resolver {
	if location == nil {
		location = time.UTC
	}
	return &Resolver{
		source:           source,
		location:         location,
		lastResortNumber: lastResortNumber,
		logger:           defaultLogger(logger),
	}
}

// Resolve determines the on-call user at the given instant. It returns
// ErrNoOnCallConfigured when no layer, including the primary fallback,
// produces an active user.
func (r *Resolver) Resolve(ctx context.Context, at time.Time) (Resolution, error) {
	if r == nil {
		return Resolution{}, fmt.Errorf("Resolver is nil")
	}
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("read schedule snapshot: %w", err)
	}
	return r.resolveAt(ctx, snap, at)
}

// ResolveTarget resolves the instant into a dialable target. When no schedule
// layer yields an assignee and a last-resort number is configured, the target
// carries that number with LastResort set.
func (r *Resolver) ResolveTarget(ctx context.Context, at time.Time) (DialTarget, error) {
	if r == nil {
		return DialTarget{}, fmt.Errorf("Resolver is nil")
	}
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return DialTarget{}, fmt.Errorf("read schedule snapshot: %w", err)
	}

	res, err := r.resolveAt(ctx, snap, at)
	if err == nil {
		users := indexUsers(snap.Users)
		target := DialTarget{
			UserID:   res.UserID,
			UserName: res.UserName,
			Source:   res.Source,
		}
		if u, ok := users[res.UserID]; ok {
			target.Phone = u.Phone
		}
		return target, nil
	}
	if r.lastResortNumber != "" {
		serviceLogger(ctx, r.logger, "resolver", "resolve_target").Warn("no on-call assignee, using last resort number")
		return DialTarget{Phone: r.lastResortNumber, LastResort: true}, nil
	}
	return DialTarget{}, err
}

// EscalationChain builds the dial plan for an inbound call at the given
// instant: the resolved on-call user first, then the enabled policy levels.
// Policy levels pointing at missing or inactive users are skipped, as is a
// level that would redial the immediately preceding link.
func (r *Resolver) EscalationChain(ctx context.Context, at time.Time) ([]ChainLink, error) {
	if r == nil {
		return nil, fmt.Errorf("Resolver is nil")
	}
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schedule snapshot: %w", err)
	}

	users := indexUsers(snap.Users)
	var chain []ChainLink

	res, err := r.resolveAt(ctx, snap, at)
	if err == nil {
		link := ChainLink{Level: 0, UserID: res.UserID, Name: res.UserName}
		if u, ok := users[res.UserID]; ok {
			link.Phone = u.Phone
		}
		chain = append(chain, link)
	}

	if snap.Policy.Enabled {
		for _, level := range snap.Policy.Levels {
			u, ok := users[level.UserID]
			if !ok || !u.Active {
				continue
			}
			if n := len(chain); n > 0 && chain[n-1].UserID == u.ID {
				continue
			}
			chain = append(chain, ChainLink{
				Level:   len(chain),
				UserID:  u.ID,
				Name:    u.Name,
				Phone:   u.Phone,
				Timeout: level.Timeout,
			})
		}
	}

	if len(chain) == 0 {
		return nil, ErrNoOnCallConfigured
	}
	return chain, nil
}

const maxRangeDays = 366

// RangeSchedule resolves one assignment per day across [from, to] inclusive,
// all from a single snapshot. Days are sampled at local noon so the daily
// layers dominate; unresolvable days are omitted.
func (r *Resolver) RangeSchedule(ctx context.Context, from, to time.Time) ([]DayAssignment, error) {
	if r == nil {
		return nil, fmt.Errorf("Resolver is nil")
	}

	start := r.dateOf(from)
	end := r.dateOf(to)
	if end.Before(start) {
		vErr := &ValidationError{}
		vErr.add("range", "end date must not precede start date")
		return nil, vErr
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		vErr := &ValidationError{}
		vErr.add("range", "range exceeds one year")
		return nil, vErr
	}

	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schedule snapshot: %w", err)
	}

	var out []DayAssignment
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		at := day.Add(12 * time.Hour)
		res, err := r.resolveAt(ctx, snap, at)
		if err != nil {
			if errors.Is(err, ErrInvalidRotation) {
				return nil, err
			}
			continue
		}
		out = append(out, DayAssignment{
			Date:     day,
			UserID:   res.UserID,
			UserName: res.UserName,
			Source:   res.Source,
		})
	}
	return out, nil
}

func (r *Resolver) resolveAt(ctx context.Context, snap Snapshot, at time.Time) (Resolution, error) {
	users := indexUsers(snap.Users)
	usable := func(id string) (User, bool) {
		u, ok := users[id]
		return u, ok && u.Active
	}
	found := func(u User, source ResolutionSource, ref string) (Resolution, error) {
		return Resolution{UserID: u.ID, UserName: u.Name, Source: source, SourceRef: ref, At: at}, nil
	}

	// Manual calendar wins outright for its date. An explicit assignment
	// stands even when the user has since been deactivated.
	day := r.dateOf(at)
	for _, entry := range snap.Calendar {
		if !r.dateOf(entry.Date).Equal(day) {
			continue
		}
		if u, ok := users[entry.UserID]; ok {
			return found(u, SourceManualCalendar, "")
		}
	}

	// Overrides: latest start wins, larger id breaks ties. Like manual
	// entries, an override holds regardless of the target's active flag.
	var winner *Override
	for i := range snap.Overrides {
		o := &snap.Overrides[i]
		if at.Before(o.StartAt) || !at.Before(o.EndAt) {
			continue
		}
		if _, ok := users[o.UserID]; !ok {
			continue
		}
		if winner == nil || o.StartAt.After(winner.StartAt) ||
			(o.StartAt.Equal(winner.StartAt) && o.ID > winner.ID) {
			winner = o
		}
	}
	if winner != nil {
		u := users[winner.UserID]
		return found(u, SourceOverride, winner.ID)
	}

	// Active rotations in creation order; the first that yields a user wins.
	rotations := append([]Rotation(nil), snap.Rotations...)
	sort.Slice(rotations, func(i, j int) bool {
		if !rotations[i].CreatedAt.Equal(rotations[j].CreatedAt) {
			return rotations[i].CreatedAt.Before(rotations[j].CreatedAt)
		}
		return rotations[i].ID < rotations[j].ID
	})
	calc := rotation.NewCalculator(r.location, snap.Config.SlotPolicy)
	for _, rot := range rotations {
		if !rot.Active {
			continue
		}
		seq := make([]rotation.Member, 0, len(rot.MemberIDs))
		for _, id := range rot.MemberIDs {
			u, ok := users[id]
			seq = append(seq, rotation.Member{UserID: id, Active: ok && u.Active})
		}
		userID, err := calc.UserAt(rotation.Rotation{
			ID:        rot.ID,
			Cycle:     rot.Cycle,
			StartDate: rot.StartDate,
			Sequence:  seq,
		}, at)
		if err != nil {
			// An exhausted sequence falls through to the next layer; a
			// rotation that cannot be evaluated at all is a configuration
			// fault and fails the resolution loudly.
			if errors.Is(err, rotation.ErrNoActiveMembers) {
				continue
			}
			serviceLogger(ctx, r.logger, "resolver", "resolve").Error("rotation evaluation failed",
				"rotation_id", rot.ID, "error", err)
			return Resolution{}, fmt.Errorf("%w: rotation %s: %v", ErrInvalidRotation, rot.ID, err)
		}
		return found(users[userID], SourceRotation, rot.ID)
	}

	// Legacy weekday/hour table: start hour inclusive, end hour exclusive.
	local := at.In(r.location)
	for _, cell := range snap.Legacy {
		if cell.Weekday != local.Weekday() || local.Hour() < cell.StartHour || local.Hour() >= cell.EndHour {
			continue
		}
		if u, ok := usable(cell.UserID); ok {
			return found(u, SourceLegacy, "")
		}
	}

	// Configured primary fallback.
	if u, ok := usable(snap.Config.PrimaryUserID); ok {
		return found(u, SourcePrimary, "")
	}

	return Resolution{}, ErrNoOnCallConfigured
}

// dateOf truncates an instant to midnight of its date in the service timezone.
func (r *Resolver) dateOf(t time.Time) time.Time {
	local := t.In(r.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.location)
}

func indexUsers(users []User) map[string]User {
	out := make(map[string]User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

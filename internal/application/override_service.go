package application

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// OverrideRepository captures the persistence operations needed by the override service.
type OverrideRepository interface {
	CreateOverride(ctx context.Context, override Override) (Override, error)
	GetOverride(ctx context.Context, id string) (Override, error)
	DeleteOverride(ctx context.Context, id string) error
	ListOverrides(ctx context.Context) ([]Override, error)
}

// OverrideService manages time-bounded schedule overrides. Overlapping
// overrides are allowed; the resolver picks the latest-starting one.
type OverrideService struct {
	overrides   OverrideRepository
	userCheck   UserChecker
	audit       AuditRecorder
	notify      Notifier
	idGenerator func() string
	now         func() time.Time
}

// NewOverrideService wires dependencies for the override service.
func NewOverrideService(overrides OverrideRepository, userCheck UserChecker, audit AuditRecorder, notify Notifier, idGenerator func() string, now func() time.Time) *OverrideService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &OverrideService{
		overrides:   overrides,
		userCheck:   userCheck,
		audit:       audit,
		notify:      notify,
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateOverride validates and persists an override for administrators.
func (s *OverrideService) CreateOverride(ctx context.Context, principal Principal, input OverrideInput) (Override, error) {
	if s == nil {
		return Override{}, fmt.Errorf("OverrideService is nil")
	}
	if !principal.IsAdmin {
		return Override{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if input.UserID == "" {
		vErr.add("user_id", "user is required")
	} else if s.userCheck != nil {
		ok, err := s.userCheck.UserExists(ctx, input.UserID)
		if err == nil && !ok {
			vErr.add("user_id", "unknown user: "+input.UserID)
		}
	}
	if input.StartAt.IsZero() || input.EndAt.IsZero() {
		vErr.add("window", "start and end are required")
	} else if !input.StartAt.Before(input.EndAt) {
		vErr.add("window", "end must be after start")
	}
	if vErr.HasErrors() {
		return Override{}, vErr
	}

	override := Override{
		ID:        s.idGenerator(),
		UserID:    input.UserID,
		StartAt:   input.StartAt,
		EndAt:     input.EndAt,
		Reason:    input.Reason,
		CreatedAt: s.now(),
	}

	persisted, err := s.overrides.CreateOverride(ctx, override)
	if err != nil {
		return Override{}, err
	}

	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "override.create", persisted.ID)
	}
	if s.notify != nil {
		s.notify.OverrideCreated(persisted)
		s.notify.OnCallChanged("override created for user " + persisted.UserID)
	}
	return persisted, nil
}

// DeleteOverride removes an override for administrators.
func (s *OverrideService) DeleteOverride(ctx context.Context, principal Principal, overrideID string) error {
	if s == nil {
		return fmt.Errorf("OverrideService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.overrides.DeleteOverride(ctx, overrideID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "override.delete", overrideID)
	}
	if s.notify != nil {
		s.notify.OnCallChanged("override deleted: " + overrideID)
	}
	return nil
}

// ListOverrides returns overrides ordered by start time, newest first.
func (s *OverrideService) ListOverrides(ctx context.Context) ([]Override, error) {
	if s == nil {
		return nil, fmt.Errorf("OverrideService is nil")
	}
	overrides, err := s.overrides.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(overrides, func(i, j int) bool {
		if !overrides[i].StartAt.Equal(overrides[j].StartAt) {
			return overrides[i].StartAt.After(overrides[j].StartAt)
		}
		return overrides[i].ID > overrides[j].ID
	})
	return overrides, nil
}

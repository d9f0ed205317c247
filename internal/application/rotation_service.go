package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/oncall-manager/internal/rotation"
)

// RotationRepository captures the persistence operations needed by the rotation service.
type RotationRepository interface {
	CreateRotation(ctx context.Context, rot Rotation) (Rotation, error)
	GetRotation(ctx context.Context, id string) (Rotation, error)
	UpdateRotation(ctx context.Context, rot Rotation) (Rotation, error)
	DeleteRotation(ctx context.Context, id string) error
	ListRotations(ctx context.Context) ([]Rotation, error)
}

// UserChecker verifies schedule references against the user table.
type UserChecker interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// RotationService manages rotation definitions. Creation order doubles as
// precedence order at resolution time.
type RotationService struct {
	rotations   RotationRepository
	userCheck   UserChecker
	audit       AuditRecorder
	notify      Notifier
	idGenerator func() string
	now         func() time.Time
}

// NewRotationService wires dependencies for the rotation service.
func NewRotationService(rotations RotationRepository, userCheck UserChecker, audit AuditRecorder, notify Notifier, idGenerator func() string, now func() time.Time) *RotationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RotationService{
		rotations:   rotations,
		userCheck:   userCheck,
		audit:       audit,
		notify:      notify,
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateRotation validates and persists a new rotation for administrators.
func (s *RotationService) CreateRotation(ctx context.Context, principal Principal, input RotationInput) (Rotation, error) {
	if s == nil {
		return Rotation{}, fmt.Errorf("RotationService is nil")
	}
	if !principal.IsAdmin {
		return Rotation{}, ErrUnauthorized
	}

	cycle, vErr := s.validateInput(ctx, &input)
	if vErr.HasErrors() {
		return Rotation{}, vErr
	}

	rot := Rotation{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Cycle:     cycle,
		StartDate: input.StartDate,
		MemberIDs: append([]string(nil), input.MemberIDs...),
		Active:    input.Active,
		CreatedAt: s.now(),
	}
	rot.UpdatedAt = rot.CreatedAt

	persisted, err := s.rotations.CreateRotation(ctx, rot)
	if err != nil {
		return Rotation{}, err
	}

	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "rotation.create", persisted.Name)
	}
	if s.notify != nil {
		s.notify.RotationCreated(persisted)
		s.notify.OnCallChanged("rotation created: " + persisted.Name)
	}
	return persisted, nil
}

// UpdateRotation validates and updates an existing rotation for administrators.
func (s *RotationService) UpdateRotation(ctx context.Context, principal Principal, rotationID string, input RotationInput) (Rotation, error) {
	if s == nil {
		return Rotation{}, fmt.Errorf("RotationService is nil")
	}
	if !principal.IsAdmin {
		return Rotation{}, ErrUnauthorized
	}

	existing, err := s.rotations.GetRotation(ctx, rotationID)
	if err != nil {
		return Rotation{}, err
	}

	cycle, vErr := s.validateInput(ctx, &input)
	if vErr.HasErrors() {
		return Rotation{}, vErr
	}

	updated := existing
	updated.Name = input.Name
	updated.Cycle = cycle
	updated.StartDate = input.StartDate
	updated.MemberIDs = append([]string(nil), input.MemberIDs...)
	updated.Active = input.Active
	updated.UpdatedAt = s.now()

	persisted, err := s.rotations.UpdateRotation(ctx, updated)
	if err != nil {
		return Rotation{}, err
	}

	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "rotation.update", persisted.Name)
	}
	if s.notify != nil {
		s.notify.OnCallChanged("rotation updated: " + persisted.Name)
	}
	return persisted, nil
}

// DeleteRotation removes a rotation for administrators.
func (s *RotationService) DeleteRotation(ctx context.Context, principal Principal, rotationID string) error {
	if s == nil {
		return fmt.Errorf("RotationService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.rotations.DeleteRotation(ctx, rotationID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "rotation.delete", rotationID)
	}
	if s.notify != nil {
		s.notify.OnCallChanged("rotation deleted: " + rotationID)
	}
	return nil
}

// GetRotation fetches one rotation.
func (s *RotationService) GetRotation(ctx context.Context, rotationID string) (Rotation, error) {
	if s == nil {
		return Rotation{}, fmt.Errorf("RotationService is nil")
	}
	return s.rotations.GetRotation(ctx, rotationID)
}

// ListRotations returns rotations in creation order.
func (s *RotationService) ListRotations(ctx context.Context) ([]Rotation, error) {
	if s == nil {
		return nil, fmt.Errorf("RotationService is nil")
	}
	rotations, err := s.rotations.ListRotations(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rotations, func(i, j int) bool {
		if !rotations[i].CreatedAt.Equal(rotations[j].CreatedAt) {
			return rotations[i].CreatedAt.Before(rotations[j].CreatedAt)
		}
		return rotations[i].ID < rotations[j].ID
	})
	return rotations, nil
}

func (s *RotationService) validateInput(ctx context.Context, input *RotationInput) (rotation.CycleType, *ValidationError) {
	vErr := &ValidationError{}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		vErr.add("name", "name is required")
	}

	cycle, err := rotation.ParseCycleType(input.Cycle)
	if err != nil {
		vErr.add("cycle", "cycle must be daily, weekly, monthly, or yearly")
	}
	if input.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if len(input.MemberIDs) == 0 {
		vErr.add("members", "at least one member is required")
	}

	seen := make(map[string]bool, len(input.MemberIDs))
	for _, id := range input.MemberIDs {
		if seen[id] {
			vErr.add("members", "members must not repeat")
			break
		}
		seen[id] = true
	}

	if s.userCheck != nil {
		for _, id := range input.MemberIDs {
			ok, err := s.userCheck.UserExists(ctx, id)
			if err != nil {
				continue
			}
			if !ok {
				vErr.add("members", "unknown user: "+id)
				break
			}
		}
	}
	return cycle, vErr
}

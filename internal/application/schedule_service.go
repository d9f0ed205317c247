package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/oncall-manager/internal/rotation"
)

// ScheduleConfigRepository captures the persistence operations for the legacy
// weekday/hour table and the schedule-wide settings.
type ScheduleConfigRepository interface {
	ReplaceLegacySchedule(ctx context.Context, cells []LegacyCell) error
	ListLegacySchedule(ctx context.Context) ([]LegacyCell, error)
	GetScheduleConfig(ctx context.Context) (ScheduleConfig, error)
	SaveScheduleConfig(ctx context.Context, config ScheduleConfig) error
}

// ScheduleService manages the legacy fallback table and resolution settings.
type ScheduleService struct {
	store     ScheduleConfigRepository
	userCheck UserChecker
	audit     AuditRecorder
	notify    Notifier
}

// NewScheduleService wires dependencies for the schedule service.
func NewScheduleService(store ScheduleConfigRepository, userCheck UserChecker, audit AuditRecorder, notify Notifier) *ScheduleService {
	return &ScheduleService{store: store, userCheck: userCheck, audit: audit, notify: notify}
}

// ReplaceLegacySchedule swaps the whole weekday/hour table for administrators.
func (s *ScheduleService) ReplaceLegacySchedule(ctx context.Context, principal Principal, cells []LegacyCell) error {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	vErr := &ValidationError{}
	byWeekday := make(map[int][]LegacyCell, 7)
	for _, cell := range cells {
		if cell.Weekday < 0 || cell.Weekday > 6 {
			vErr.add("weekday", "weekday must be 0 (Sunday) through 6 (Saturday)")
			break
		}
		if cell.StartHour < 0 || cell.StartHour > 23 {
			vErr.add("start_hour", "start hour must be 0 through 23")
			break
		}
		if cell.EndHour < 1 || cell.EndHour > 24 {
			vErr.add("end_hour", "end hour must be 1 through 24")
			break
		}
		if cell.StartHour >= cell.EndHour {
			vErr.add("cells", "start hour must precede end hour")
			break
		}
		overlaps := false
		for _, other := range byWeekday[int(cell.Weekday)] {
			if cell.StartHour < other.EndHour && other.StartHour < cell.EndHour {
				vErr.add("cells", "overlapping hour ranges on the same weekday")
				overlaps = true
				break
			}
		}
		if overlaps {
			break
		}
		byWeekday[int(cell.Weekday)] = append(byWeekday[int(cell.Weekday)], cell)
		if s.userCheck != nil {
			ok, err := s.userCheck.UserExists(ctx, cell.UserID)
			if err == nil && !ok {
				vErr.add("cells", "unknown user: "+cell.UserID)
				break
			}
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	if err := s.store.ReplaceLegacySchedule(ctx, cells); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "legacy_schedule.replace", fmt.Sprintf("%d cells", len(cells)))
	}
	if s.notify != nil {
		s.notify.OnCallChanged("legacy schedule replaced")
	}
	return nil
}

// ListLegacySchedule returns the weekday/hour table.
func (s *ScheduleService) ListLegacySchedule(ctx context.Context) ([]LegacyCell, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	return s.store.ListLegacySchedule(ctx)
}

// GetConfig returns the schedule-wide settings. A missing record yields the
// zero config rather than an error.
func (s *ScheduleService) GetConfig(ctx context.Context) (ScheduleConfig, error) {
	if s == nil {
		return ScheduleConfig{}, fmt.Errorf("ScheduleService is nil")
	}
	config, err := s.store.GetScheduleConfig(ctx)
	if errors.Is(err, ErrNotFound) {
		return ScheduleConfig{}, nil
	}
	return config, err
}

// UpdateConfig validates and saves the schedule-wide settings.
func (s *ScheduleService) UpdateConfig(ctx context.Context, principal Principal, config ScheduleConfig) error {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	vErr := &ValidationError{}
	if config.SlotPolicy != rotation.SlotConsume && config.SlotPolicy != rotation.SlotReassign {
		vErr.add("slot_policy", "slot policy must be consume or reassign")
	}
	if config.PrimaryUserID != "" && s.userCheck != nil {
		ok, err := s.userCheck.UserExists(ctx, config.PrimaryUserID)
		if err == nil && !ok {
			vErr.add("primary_user_id", "unknown user: "+config.PrimaryUserID)
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	if err := s.store.SaveScheduleConfig(ctx, config); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "schedule_config.update", "")
	}
	if s.notify != nil {
		s.notify.OnCallChanged("schedule configuration updated")
	}
	return nil
}

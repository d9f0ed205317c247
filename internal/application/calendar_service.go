package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// CalendarRepository captures the persistence operations needed by the calendar service.
type CalendarRepository interface {
	UpsertCalendarEntry(ctx context.Context, entry CalendarEntry) error
	GetCalendarEntry(ctx context.Context, date time.Time) (CalendarEntry, error)
	DeleteCalendarEntry(ctx context.Context, date time.Time) error
	ListCalendarEntries(ctx context.Context, from, to time.Time) ([]CalendarEntry, error)
}

// UserDirectory resolves import references that may be either a user id or a
// display name.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
}

// CalendarService manages the manual per-date assignment layer, including
// bulk CSV import.
type CalendarService struct {
	calendar CalendarRepository
	users    UserDirectory
	audit    AuditRecorder
	notify   Notifier
	location *time.Location
	now      func() time.Time
}

// NewCalendarService wires dependencies for the calendar service.
func NewCalendarService(calendar CalendarRepository, users UserDirectory, audit AuditRecorder, notify Notifier, location *time.Location, now func() time.Time) *CalendarService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		calendar: calendar,
		users:    users,
		audit:    audit,
		notify:   notify,
		location: location,
		now:      now,
	}
}

// SetDay pins a date to a user for administrators.
func (s *CalendarService) SetDay(ctx context.Context, principal Principal, date time.Time, userID string) error {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("user_id", "unknown user: "+userID)
			return vErr
		}
		return err
	}

	entry := CalendarEntry{Date: s.normalizeDate(date), UserID: userID}
	if err := s.calendar.UpsertCalendarEntry(ctx, entry); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "calendar.set", entry.Date.Format("2006-01-02"))
	}
	if s.notify != nil {
		s.notify.OnCallChanged("manual assignment set for " + entry.Date.Format("2006-01-02"))
	}
	return nil
}

// ClearDay removes the manual assignment for a date.
func (s *CalendarService) ClearDay(ctx context.Context, principal Principal, date time.Time) error {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	day := s.normalizeDate(date)
	if err := s.calendar.DeleteCalendarEntry(ctx, day); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "calendar.clear", day.Format("2006-01-02"))
	}
	if s.notify != nil {
		s.notify.OnCallChanged("manual assignment cleared for " + day.Format("2006-01-02"))
	}
	return nil
}

// ListRange returns the manual entries in [from, to].
func (s *CalendarService) ListRange(ctx context.Context, from, to time.Time) ([]CalendarEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("CalendarService is nil")
	}
	return s.calendar.ListCalendarEntries(ctx, s.normalizeDate(from), s.normalizeDate(to))
}

// Import reads CSV rows of the form "date,user" where user is an id or a
// display name, and upserts one manual entry per valid row. Invalid rows are
// reported per line and never abort the rest of the batch.
func (s *CalendarService) Import(ctx context.Context, principal Principal, source io.Reader) (ImportResult, error) {
	if s == nil {
		return ImportResult{}, fmt.Errorf("CalendarService is nil")
	}
	if !principal.IsAdmin {
		return ImportResult{}, ErrUnauthorized
	}

	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := ImportResult{}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Reason: "malformed row"})
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 {
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Reason: "expected date,user"})
			continue
		}

		rawDate := strings.TrimSpace(record[0])
		date, err := time.ParseInLocation("2006-01-02", rawDate, s.location)
		if err != nil {
			// A first row that does not parse as a date is a header.
			if line == 1 {
				continue
			}
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Reason: "invalid date: " + rawDate})
			continue
		}

		ref := strings.TrimSpace(record[1])
		user, err := s.resolveUser(ctx, ref)
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Reason: "unknown user: " + ref})
			continue
		}

		if err := s.calendar.UpsertCalendarEntry(ctx, CalendarEntry{Date: date, UserID: user.ID}); err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Reason: "store failed"})
			continue
		}
		result.Imported++
	}

	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "calendar.import",
			fmt.Sprintf("imported %d, skipped %d", result.Imported, len(result.Skipped)))
	}
	if s.notify != nil && result.Imported > 0 {
		s.notify.OnCallChanged(fmt.Sprintf("calendar import applied %d entries", result.Imported))
	}
	return result, nil
}

func (s *CalendarService) resolveUser(ctx context.Context, ref string) (User, error) {
	if ref == "" {
		return User{}, ErrNotFound
	}
	if user, err := s.users.GetUser(ctx, ref); err == nil {
		return user, nil
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	return s.users.GetUserByName(ctx, ref)
}

func (s *CalendarService) normalizeDate(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}

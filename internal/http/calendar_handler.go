package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/oncall-manager/internal/application"
)

type calendarService interface {
	SetDay(ctx context.Context, principal application.Principal, date time.Time, userID string) error
	ClearDay(ctx context.Context, principal application.Principal, date time.Time) error
	ListRange(ctx context.Context, from, to time.Time) ([]application.CalendarEntry, error)
	Import(ctx context.Context, principal application.Principal, source io.Reader) (application.ImportResult, error)
}

type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) SetDay(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, ok := h.dateFromContext(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req setDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetDay", "principal_id", principal.UserID, "date", date.Format(dateParamLayout))

	if err := h.service.SetDay(r.Context(), principal, date, req.UserID); err != nil {
		logger.ErrorContext(r.Context(), "calendar assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar day assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CalendarHandler) ClearDay(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, ok := h.dateFromContext(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ClearDay", "principal_id", principal.UserID, "date", date.Format(dateParamLayout))

	if err := h.service.ClearDay(r.Context(), principal, date); err != nil {
		logger.ErrorContext(r.Context(), "calendar clear failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar day cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, err := time.Parse(dateParamLayout, r.URL.Query().Get("from"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	to, err := time.Parse(dateParamLayout, r.URL.Query().Get("to"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	entries, err := h.service.ListRange(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "calendar listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]calendarEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, calendarEntryDTO{
			Date:   entry.Date.Format(dateParamLayout),
			UserID: entry.UserID,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCalendarResponse{Entries: out})
}

// Import accepts a CSV body of date,user rows. Row failures are reported per
// line and never abort the batch.
func (h *CalendarHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Import", "principal_id", principal.UserID)

	result, err := h.service.Import(r.Context(), principal, r.Body)
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	skipped := make([]importRowErrorDTO, 0, len(result.Skipped))
	for _, rowErr := range result.Skipped {
		skipped = append(skipped, importRowErrorDTO{Line: rowErr.Line, Reason: rowErr.Reason})
	}

	logger.InfoContext(r.Context(), "calendar import finished",
		"imported", result.Imported, "skipped", len(result.Skipped))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, importResponse{
		Imported: result.Imported,
		Skipped:  skipped,
	})
}

func (h *CalendarHandler) dateFromContext(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw, ok := DateFromContext(r.Context())
	if !ok || raw == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return time.Time{}, false
	}
	date, err := time.Parse(dateParamLayout, raw)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return time.Time{}, false
	}
	return date, true
}

type setDayRequest struct {
	UserID string `json:"user_id"`
}

type calendarEntryDTO struct {
	Date   string `json:"date"`
	UserID string `json:"user_id"`
}

type listCalendarResponse struct {
	Entries []calendarEntryDTO `json:"entries"`
}

type importRowErrorDTO struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type importResponse struct {
	Imported int                 `json:"imported"`
	Skipped  []importRowErrorDTO `json:"skipped"`
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/oncall-manager/internal/application"
)

type resolverService interface {
	Resolve(ctx context.Context, at time.Time) (application.Resolution, error)
	ResolveTarget(ctx context.Context, at time.Time) (application.DialTarget, error)
	EscalationChain(ctx context.Context, at time.Time) ([]application.ChainLink, error)
	RangeSchedule(ctx context.Context, from, to time.Time) ([]application.DayAssignment, error)
}

// OnCallHandler serves the read endpoints the telephony host polls. They are
// unauthenticated so the dial plan can reach them without a session.
type OnCallHandler struct {
	service   resolverService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewOnCallHandler(service resolverService, now func() time.Time, logger *slog.Logger) *OnCallHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &OnCallHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *OnCallHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "OnCallHandler", operation, attrs...)
}

// Current answers "who should be dialed right now". An optional `at`
// parameter in RFC 3339 evaluates the schedule at another instant.
func (h *OnCallHandler) Current(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	at, ok := h.instantParam(w, r)
	if !ok {
		return
	}

	target, err := h.service.ResolveTarget(r.Context(), at)
	if err != nil {
		h.log(r.Context(), "Current").ErrorContext(r.Context(), "resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, dialTargetResponse{
		UserID:     target.UserID,
		UserName:   target.UserName,
		Phone:      target.Phone,
		Source:     string(target.Source),
		LastResort: target.LastResort,
		At:         at,
	})
}

// Chain returns the effective escalation chain at the given instant.
func (h *OnCallHandler) Chain(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	at, ok := h.instantParam(w, r)
	if !ok {
		return
	}

	chain, err := h.service.EscalationChain(r.Context(), at)
	if err != nil {
		h.log(r.Context(), "Chain").ErrorContext(r.Context(), "chain resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	links := make([]chainLinkDTO, 0, len(chain))
	for _, link := range chain {
		links = append(links, chainLinkDTO{
			Level:          link.Level,
			UserID:         link.UserID,
			Name:           link.Name,
			Phone:          link.Phone,
			TimeoutSeconds: int(link.Timeout / time.Second),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, chainResponse{At: at, Chain: links})
}

// Schedule returns the per-day calendar view between `from` and `to`.
func (h *OnCallHandler) Schedule(w http.ResponseWriter, r *http.Request) {
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

	days, err := h.service.RangeSchedule(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "Schedule").ErrorContext(r.Context(), "schedule resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	assignments := make([]dayAssignmentDTO, 0, len(days))
	for _, day := range days {
		assignments = append(assignments, dayAssignmentDTO{
			Date:     day.Date.Format(dateParamLayout),
			UserID:   day.UserID,
			UserName: day.UserName,
			Source:   string(day.Source),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Days: assignments})
}

func (h *OnCallHandler) instantParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return h.now(), true
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstant)
		return time.Time{}, false
	}
	return at, true
}

const dateParamLayout = "2006-01-02"

type dialTargetResponse struct {
	UserID     string    `json:"user_id,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	Phone      string    `json:"phone"`
	Source     string    `json:"source"`
	LastResort bool      `json:"last_resort"`
	At         time.Time `json:"at"`
}

type chainLinkDTO struct {
	Level          int    `json:"level"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type chainResponse struct {
	At    time.Time      `json:"at"`
	Chain []chainLinkDTO `json:"chain"`
}

type dayAssignmentDTO struct {
	Date     string `json:"date"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Source   string `json:"source"`
}

type scheduleResponse struct {
	Days []dayAssignmentDTO `json:"days"`
}

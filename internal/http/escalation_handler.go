package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/oncall-manager/internal/application"
	"github.com/example/oncall-manager/internal/escalation"
)

type escalationService interface {
	Start(ctx context.Context, callRef, caller string) (application.StartedEscalation, error)
	Answered(ctx context.Context, runID string) error
	CallEnded(ctx context.Context, runID string) error
	Status(runID string) (escalation.Run, bool)
}

// EscalationHandler exposes the run lifecycle to the telephony host. Like the
// on-call read endpoints these are unauthenticated.
type EscalationHandler struct {
	service   escalationService
	responder responder
	logger    *slog.Logger
}

func NewEscalationHandler(service escalationService, logger *slog.Logger) *EscalationHandler {
	base := defaultLogger(logger)
	return &EscalationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EscalationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EscalationHandler", operation, attrs...)
}

func (h *EscalationHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req startEscalationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Start", "call_ref", req.CallRef)

	started, err := h.service.Start(r.Context(), req.CallRef, req.Caller)
	if err != nil {
		logger.ErrorContext(r.Context(), "escalation start failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	links := make([]chainLinkDTO, 0, len(started.Chain))
	for _, link := range started.Chain {
		links = append(links, chainLinkDTO{
			Level:          link.Level,
			UserID:         link.UserID,
			Name:           link.Name,
			Phone:          link.Phone,
			TimeoutSeconds: int(link.Timeout / time.Second),
		})
	}

	logger.With("run_id", started.RunID).InfoContext(r.Context(), "escalation started")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, startEscalationResponse{
		RunID: started.RunID,
		Chain: links,
	})
}

func (h *EscalationHandler) Answered(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, "Answered", h.serviceAnswered)
}

func (h *EscalationHandler) Ended(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, "Ended", h.serviceEnded)
}

func (h *EscalationHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	runID, ok := RunIDFromContext(r.Context())
	if !ok || strings.TrimSpace(runID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRunID)
		return
	}

	run, ok := h.service.Status(runID)
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, runStatusResponse{
		RunID:     run.ID,
		CallRef:   run.CallRef,
		State:     run.State.String(),
		Level:     run.Level,
		Levels:    len(run.Levels),
		StartedAt: run.StartedAt,
	})
}

func (h *EscalationHandler) signal(w http.ResponseWriter, r *http.Request, operation string, fn func(ctx context.Context, runID string) error) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	runID, ok := RunIDFromContext(r.Context())
	if !ok || strings.TrimSpace(runID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRunID)
		return
	}

	logger := h.log(r.Context(), operation, "run_id", runID)

	if err := fn(r.Context(), runID); err != nil {
		if errors.Is(err, escalation.ErrUnknownRun) {
			h.responder.writeError(r.Context(), w, http.StatusNotFound, errors.New("no escalation run with this id exists"))
			return
		}
		logger.ErrorContext(r.Context(), "escalation signal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "escalation signal accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EscalationHandler) serviceAnswered(ctx context.Context, runID string) error {
	return h.service.Answered(ctx, runID)
}

func (h *EscalationHandler) serviceEnded(ctx context.Context, runID string) error {
	return h.service.CallEnded(ctx, runID)
}

type startEscalationRequest struct {
	CallRef string `json:"call_ref"`
	Caller  string `json:"caller"`
}

type startEscalationResponse struct {
	RunID string         `json:"run_id"`
	Chain []chainLinkDTO `json:"chain"`
}

type runStatusResponse struct {
	RunID     string    `json:"run_id"`
	CallRef   string    `json:"call_ref"`
	State     string    `json:"state"`
	Level     int       `json:"level"`
	Levels    int       `json:"levels"`
	StartedAt time.Time `json:"started_at"`
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/oncall-manager/internal/application"
)

type overrideService interface {
	CreateOverride(ctx context.Context, principal application.Principal, input application.OverrideInput) (application.Override, error)
	DeleteOverride(ctx context.Context, principal application.Principal, overrideID string) error
	ListOverrides(ctx context.Context) ([]application.Override, error)
}

type OverrideHandler struct {
	service   overrideService
	responder responder
	logger    *slog.Logger
}

func NewOverrideHandler(service overrideService, logger *slog.Logger) *OverrideHandler {
	base := defaultLogger(logger)
	return &OverrideHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *OverrideHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "OverrideHandler", operation, attrs...)
}

func (h *OverrideHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	created, err := h.service.CreateOverride(r.Context(), principal, application.OverrideInput{
		UserID:  req.UserID,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
		Reason:  req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "override creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("override_id", created.ID).InfoContext(r.Context(), "override created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, overrideResponse{Override: toOverrideDTO(created)})
}

func (h *OverrideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	overrideID, ok := OverrideIDFromContext(r.Context())
	if !ok || strings.TrimSpace(overrideID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOverrideID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "override_id", overrideID)

	if err := h.service.DeleteOverride(r.Context(), principal, overrideID); err != nil {
		logger.ErrorContext(r.Context(), "override deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "override deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *OverrideHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	overrides, err := h.service.ListOverrides(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "override listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]overrideDTO, 0, len(overrides))
	for _, override := range overrides {
		out = append(out, toOverrideDTO(override))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOverridesResponse{Overrides: out})
}

type overrideRequest struct {
	UserID  string    `json:"user_id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Reason  string    `json:"reason"`
}

type overrideDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type overrideResponse struct {
	Override overrideDTO `json:"override"`
}

type listOverridesResponse struct {
	Overrides []overrideDTO `json:"overrides"`
}

func toOverrideDTO(override application.Override) overrideDTO {
	return overrideDTO{
		ID:        override.ID,
		UserID:    override.UserID,
		StartAt:   override.StartAt,
		EndAt:     override.EndAt,
		Reason:    override.Reason,
		CreatedAt: override.CreatedAt,
	}
}

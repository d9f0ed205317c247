package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/oncall-manager/internal/application"
)

type policyService interface {
	GetPolicy(ctx context.Context) (application.EscalationPolicy, error)
	UpdatePolicy(ctx context.Context, principal application.Principal, policy application.EscalationPolicy) error
}

type PolicyHandler struct {
	service   policyService
	responder responder
	logger    *slog.Logger
}

func NewPolicyHandler(service policyService, logger *slog.Logger) *PolicyHandler {
	base := defaultLogger(logger)
	return &PolicyHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PolicyHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PolicyHandler", operation, attrs...)
}

func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	policy, err := h.service.GetPolicy(r.Context())
	if err != nil {
		h.log(r.Context(), "Get").ErrorContext(r.Context(), "policy lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPolicyDTO(policy))
}

func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req policyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	levels := make([]application.PolicyLevel, 0, len(req.Levels))
	for _, level := range req.Levels {
		levels = append(levels, application.PolicyLevel{
			UserID:  level.UserID,
			Timeout: time.Duration(level.TimeoutSeconds) * time.Second,
		})
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "levels", len(levels))

	if err := h.service.UpdatePolicy(r.Context(), principal, application.EscalationPolicy{
		Enabled: req.Enabled,
		Levels:  levels,
	}); err != nil {
		logger.ErrorContext(r.Context(), "policy update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "escalation policy updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type policyLevelDTO struct {
	UserID         string `json:"user_id"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type policyDTO struct {
	Enabled bool             `json:"enabled"`
	Levels  []policyLevelDTO `json:"levels"`
}

func toPolicyDTO(policy application.EscalationPolicy) policyDTO {
	levels := make([]policyLevelDTO, 0, len(policy.Levels))
	for _, level := range policy.Levels {
		levels = append(levels, policyLevelDTO{
			UserID:         level.UserID,
			TimeoutSeconds: int(level.Timeout / time.Second),
		})
	}
	return policyDTO{Enabled: policy.Enabled, Levels: levels}
}

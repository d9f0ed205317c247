package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/oncall-manager/internal/application"
	"github.com/example/oncall-manager/internal/rotation"
)

type scheduleService interface {
	ReplaceLegacySchedule(ctx context.Context, principal application.Principal, cells []application.LegacyCell) error
	ListLegacySchedule(ctx context.Context) ([]application.LegacyCell, error)
	GetConfig(ctx context.Context) (application.ScheduleConfig, error)
	UpdateConfig(ctx context.Context, principal application.Principal, config application.ScheduleConfig) error
}

// ScheduleHandler manages the weekday/hour fallback table and the resolution
// settings shared by every schedule layer.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

func (h *ScheduleHandler) ListLegacy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cells, err := h.service.ListLegacySchedule(r.Context())
	if err != nil {
		h.log(r.Context(), "ListLegacy").ErrorContext(r.Context(), "legacy schedule listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]legacyCellDTO, 0, len(cells))
	for _, cell := range cells {
		out = append(out, legacyCellDTO{
			Weekday:   int(cell.Weekday),
			StartHour: cell.StartHour,
			EndHour:   cell.EndHour,
			UserID:    cell.UserID,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, legacyScheduleResponse{Cells: out})
}

func (h *ScheduleHandler) ReplaceLegacy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req legacyScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	cells := make([]application.LegacyCell, 0, len(req.Cells))
	for _, cell := range req.Cells {
		cells = append(cells, application.LegacyCell{
			Weekday:   time.Weekday(cell.Weekday),
			StartHour: cell.StartHour,
			EndHour:   cell.EndHour,
			UserID:    cell.UserID,
		})
	}

	logger := h.log(r.Context(), "ReplaceLegacy", "principal_id", principal.UserID, "cells", len(cells))

	if err := h.service.ReplaceLegacySchedule(r.Context(), principal, cells); err != nil {
		logger.ErrorContext(r.Context(), "legacy schedule replacement failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "legacy schedule replaced")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ScheduleHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	config, err := h.service.GetConfig(r.Context())
	if err != nil {
		h.log(r.Context(), "GetConfig").ErrorContext(r.Context(), "config lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleConfigDTO{
		PrimaryUserID: config.PrimaryUserID,
		SlotPolicy:    config.SlotPolicy.String(),
	})
}

func (h *ScheduleHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req scheduleConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	policy, err := rotation.ParseSlotPolicy(req.SlotPolicy)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("slot policy must be consume or reassign"))
		return
	}

	logger := h.log(r.Context(), "UpdateConfig", "principal_id", principal.UserID)

	if err := h.service.UpdateConfig(r.Context(), principal, application.ScheduleConfig{
		PrimaryUserID: req.PrimaryUserID,
		SlotPolicy:    policy,
	}); err != nil {
		logger.ErrorContext(r.Context(), "config update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "schedule config updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type legacyCellDTO struct {
	Weekday   int    `json:"weekday"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	UserID    string `json:"user_id"`
}

type legacyScheduleRequest struct {
	Cells []legacyCellDTO `json:"cells"`
}

type legacyScheduleResponse struct {
	Cells []legacyCellDTO `json:"cells"`
}

type scheduleConfigDTO struct {
	PrimaryUserID string `json:"primary_user_id"`
	SlotPolicy    string `json:"slot_policy"`
}

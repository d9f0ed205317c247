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

type rotationService interface {
	CreateRotation(ctx context.Context, principal application.Principal, input application.RotationInput) (application.Rotation, error)
	UpdateRotation(ctx context.Context, principal application.Principal, rotationID string, input application.RotationInput) (application.Rotation, error)
	DeleteRotation(ctx context.Context, principal application.Principal, rotationID string) error
	GetRotation(ctx context.Context, rotationID string) (application.Rotation, error)
	ListRotations(ctx context.Context) ([]application.Rotation, error)
}

type RotationHandler struct {
	service   rotationService
	responder responder
	logger    *slog.Logger
}

func NewRotationHandler(service rotationService, logger *slog.Logger) *RotationHandler {
	base := defaultLogger(logger)
	return &RotationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RotationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RotationHandler", operation, attrs...)
}

func (h *RotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req rotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	created, err := h.service.CreateRotation(r.Context(), principal, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "rotation creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rotation_id", created.ID).InfoContext(r.Context(), "rotation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, rotationResponse{Rotation: toRotationDTO(created)})
}

func (h *RotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rotationID, ok := RotationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(rotationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRotationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req rotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "rotation_id", rotationID)

	updated, err := h.service.UpdateRotation(r.Context(), principal, rotationID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "rotation update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rotation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, rotationResponse{Rotation: toRotationDTO(updated)})
}

func (h *RotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rotationID, ok := RotationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(rotationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRotationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "rotation_id", rotationID)

	if err := h.service.DeleteRotation(r.Context(), principal, rotationID); err != nil {
		logger.ErrorContext(r.Context(), "rotation deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rotation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rotationID, ok := RotationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(rotationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRotationID)
		return
	}

	rotation, err := h.service.GetRotation(r.Context(), rotationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, rotationResponse{Rotation: toRotationDTO(rotation)})
}

func (h *RotationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rotations, err := h.service.ListRotations(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "rotation listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]rotationDTO, 0, len(rotations))
	for _, rotation := range rotations {
		out = append(out, toRotationDTO(rotation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRotationsResponse{Rotations: out})
}

type rotationRequest struct {
	Name      string   `json:"name"`
	Cycle     string   `json:"cycle"`
	StartDate string   `json:"start_date"`
	MemberIDs []string `json:"member_ids"`
	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

func (r rotationRequest) toInput() (application.RotationInput, error) {
	input := application.RotationInput{
		Name:      r.Name,
		Cycle:     r.Cycle,
		MemberIDs: r.MemberIDs,
		Active:    r.Active == nil || *r.Active,
	}
	if r.StartDate != "" {
		start, err := time.Parse(dateParamLayout, r.StartDate)
		if err != nil {
			return application.RotationInput{}, errInvalidDate
		}
		input.StartDate = start
	}
	return input, nil
}

type rotationDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Cycle     string    `json:"cycle"`
	StartDate string    `json:"start_date"`
	MemberIDs []string  `json:"member_ids"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type rotationResponse struct {
	Rotation rotationDTO `json:"rotation"`
}

type listRotationsResponse struct {
	Rotations []rotationDTO `json:"rotations"`
}

func toRotationDTO(rotation application.Rotation) rotationDTO {
	return rotationDTO{
		ID:        rotation.ID,
		Name:      rotation.Name,
		Cycle:     rotation.Cycle.String(),
		StartDate: rotation.StartDate.Format(dateParamLayout),
		MemberIDs: rotation.MemberIDs,
		Active:    rotation.Active,
		CreatedAt: rotation.CreatedAt,
		UpdatedAt: rotation.UpdatedAt,
	}
}

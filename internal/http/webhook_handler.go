package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/oncall-manager/internal/application"
)

type webhookService interface {
	CreateWebhook(ctx context.Context, principal application.Principal, input application.WebhookInput) (application.Webhook, error)
	UpdateWebhook(ctx context.Context, principal application.Principal, webhookID string, input application.WebhookInput) (application.Webhook, error)
	DeleteWebhook(ctx context.Context, principal application.Principal, webhookID string) error
	ListWebhooks(ctx context.Context) ([]application.Webhook, error)
	ListDeliveries(ctx context.Context, limit int) ([]application.WebhookDelivery, error)
	TestWebhook(ctx context.Context, principal application.Principal, webhookID string) error
}

type WebhookHandler struct {
	service   webhookService
	responder responder
	logger    *slog.Logger
}

func NewWebhookHandler(service webhookService, logger *slog.Logger) *WebhookHandler {
	base := defaultLogger(logger)
	return &WebhookHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WebhookHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WebhookHandler", operation, attrs...)
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	created, err := h.service.CreateWebhook(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "webhook creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("webhook_id", created.ID).InfoContext(r.Context(), "webhook created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, webhookResponse{Webhook: toWebhookDTO(created)})
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	webhookID, ok := WebhookIDFromContext(r.Context())
	if !ok || strings.TrimSpace(webhookID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWebhookID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "webhook_id", webhookID)

	updated, err := h.service.UpdateWebhook(r.Context(), principal, webhookID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "webhook update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "webhook updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, webhookResponse{Webhook: toWebhookDTO(updated)})
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	webhookID, ok := WebhookIDFromContext(r.Context())
	if !ok || strings.TrimSpace(webhookID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWebhookID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "webhook_id", webhookID)

	if err := h.service.DeleteWebhook(r.Context(), principal, webhookID); err != nil {
		logger.ErrorContext(r.Context(), "webhook deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "webhook deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	webhooks, err := h.service.ListWebhooks(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "webhook listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]webhookDTO, 0, len(webhooks))
	for _, webhook := range webhooks {
		out = append(out, toWebhookDTO(webhook))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listWebhooksResponse{Webhooks: out})
}

func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	webhookID, ok := WebhookIDFromContext(r.Context())
	if !ok || strings.TrimSpace(webhookID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWebhookID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Test", "principal_id", principal.UserID, "webhook_id", webhookID)

	if err := h.service.TestWebhook(r.Context(), principal, webhookID); err != nil {
		logger.ErrorContext(r.Context(), "webhook test failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "webhook test queued")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, nil)
}

func (h *WebhookHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	limit := limitParam(r, 0)
	deliveries, err := h.service.ListDeliveries(r.Context(), limit)
	if err != nil {
		h.log(r.Context(), "Deliveries").ErrorContext(r.Context(), "delivery listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]webhookDeliveryDTO, 0, len(deliveries))
	for _, delivery := range deliveries {
		out = append(out, webhookDeliveryDTO{
			ID:          delivery.ID,
			WebhookID:   delivery.WebhookID,
			EventKind:   delivery.EventKind,
			StatusCode:  delivery.StatusCode,
			Error:       delivery.Error,
			DeliveredAt: delivery.DeliveredAt,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDeliveriesResponse{Deliveries: out})
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return fallback
	}
	return limit
}

type webhookRequest struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	URL     string   `json:"url"`
	Enabled bool     `json:"enabled"`
	Events  []string `json:"events"`
}

func (r webhookRequest) toInput() application.WebhookInput {
	return application.WebhookInput{
		Name:    r.Name,
		Type:    r.Type,
		URL:     r.URL,
		Enabled: r.Enabled,
		Events:  r.Events,
	}
}

type webhookDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Enabled   bool      `json:"enabled"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

type webhookResponse struct {
	Webhook webhookDTO `json:"webhook"`
}

type listWebhooksResponse struct {
	Webhooks []webhookDTO `json:"webhooks"`
}

type webhookDeliveryDTO struct {
	ID          string    `json:"id"`
	WebhookID   string    `json:"webhook_id"`
	EventKind   string    `json:"event_kind"`
	StatusCode  int       `json:"status_code"`
	Error       string    `json:"error,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type listDeliveriesResponse struct {
	Deliveries []webhookDeliveryDTO `json:"deliveries"`
}

func toWebhookDTO(webhook application.Webhook) webhookDTO {
	events := make([]string, 0, len(webhook.Events))
	for _, kind := range webhook.Events {
		events = append(events, string(kind))
	}
	return webhookDTO{
		ID:        webhook.ID,
		Name:      webhook.Name,
		Type:      webhook.Type,
		URL:       webhook.URL,
		Enabled:   webhook.Enabled,
		Events:    events,
		CreatedAt: webhook.CreatedAt,
	}
}

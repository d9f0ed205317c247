package application

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/example/oncall-manager/internal/events"
)

// WebhookAdminRepository captures the persistence operations for webhook
// endpoints and their delivery log.
type WebhookAdminRepository interface {
	CreateWebhook(ctx context.Context, webhook Webhook) (Webhook, error)
	GetWebhook(ctx context.Context, id string) (Webhook, error)
	UpdateWebhook(ctx context.Context, webhook Webhook) (Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	ListDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
}

var webhookTypes = map[string]bool{
	"slack":   true,
	"discord": true,
	"teams":   true,
	"generic": true,
}

// WebhookService manages outbound notification endpoints.
type WebhookService struct {
	webhooks    WebhookAdminRepository
	audit       AuditRecorder
	notify      Notifier
	idGenerator func() string
	now         func() time.Time
}

// NewWebhookService wires dependencies for the webhook service.
func NewWebhookService(webhooks WebhookAdminRepository, audit AuditRecorder, notify Notifier, idGenerator func() string, now func() time.Time) *WebhookService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WebhookService{webhooks: webhooks, audit: audit, notify: notify, idGenerator: idGenerator, now: now}
}

// CreateWebhook validates and persists a new endpoint for administrators.
func (s *WebhookService) CreateWebhook(ctx context.Context, principal Principal, input WebhookInput) (Webhook, error) {
	if s == nil {
		return Webhook{}, fmt.Errorf("WebhookService is nil")
	}
	if !principal.IsAdmin {
		return Webhook{}, ErrUnauthorized
	}

	kinds, vErr := validateWebhookInput(&input)
	if vErr.HasErrors() {
		return Webhook{}, vErr
	}

	webhook := Webhook{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Type:      input.Type,
		URL:       input.URL,
		Enabled:   input.Enabled,
		Events:    kinds,
		CreatedAt: s.now(),
	}

	persisted, err := s.webhooks.CreateWebhook(ctx, webhook)
	if err != nil {
		return Webhook{}, err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "webhook.create", persisted.Name)
	}
	return persisted, nil
}

// UpdateWebhook validates and updates an endpoint for administrators.
func (s *WebhookService) UpdateWebhook(ctx context.Context, principal Principal, webhookID string, input WebhookInput) (Webhook, error) {
	if s == nil {
		return Webhook{}, fmt.Errorf("WebhookService is nil")
	}
	if !principal.IsAdmin {
		return Webhook{}, ErrUnauthorized
	}

	existing, err := s.webhooks.GetWebhook(ctx, webhookID)
	if err != nil {
		return Webhook{}, err
	}

	kinds, vErr := validateWebhookInput(&input)
	if vErr.HasErrors() {
		return Webhook{}, vErr
	}

	updated := existing
	updated.Name = input.Name
	updated.Type = input.Type
	updated.URL = input.URL
	updated.Enabled = input.Enabled
	updated.Events = kinds

	persisted, err := s.webhooks.UpdateWebhook(ctx, updated)
	if err != nil {
		return Webhook{}, err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "webhook.update", persisted.Name)
	}
	return persisted, nil
}

// DeleteWebhook removes an endpoint for administrators.
func (s *WebhookService) DeleteWebhook(ctx context.Context, principal Principal, webhookID string) error {
	if s == nil {
		return fmt.Errorf("WebhookService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.webhooks.DeleteWebhook(ctx, webhookID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "webhook.delete", webhookID)
	}
	return nil
}

// ListWebhooks returns endpoints ordered by name.
func (s *WebhookService) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	if s == nil {
		return nil, fmt.Errorf("WebhookService is nil")
	}
	webhooks, err := s.webhooks.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(webhooks, func(i, j int) bool { return webhooks[i].Name < webhooks[j].Name })
	return webhooks, nil
}

// ListDeliveries returns the most recent delivery attempts.
func (s *WebhookService) ListDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if s == nil {
		return nil, fmt.Errorf("WebhookService is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.webhooks.ListDeliveries(ctx, limit)
}

// TestWebhook publishes a test event so administrators can verify delivery
// without waiting for a real schedule change.
func (s *WebhookService) TestWebhook(ctx context.Context, principal Principal, webhookID string) error {
	if s == nil {
		return fmt.Errorf("WebhookService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if _, err := s.webhooks.GetWebhook(ctx, webhookID); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.WebhookTest(webhookID)
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "webhook.test", webhookID)
	}
	return nil
}

func validateWebhookInput(input *WebhookInput) ([]events.Kind, *ValidationError) {
	vErr := &ValidationError{}
	input.Name = strings.TrimSpace(input.Name)
	input.URL = strings.TrimSpace(input.URL)
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if !webhookTypes[input.Type] {
		vErr.add("type", "type must be slack, discord, teams, or generic")
	}
	if parsed, err := url.Parse(input.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		vErr.add("url", "url must be a valid http or https address")
	}

	kinds := make([]events.Kind, 0, len(input.Events))
	for _, raw := range input.Events {
		kind := events.Kind(strings.TrimSpace(raw))
		if !kind.Valid() {
			vErr.add("events", "unknown event kind: "+raw)
			continue
		}
		kinds = append(kinds, kind)
	}
	return kinds, vErr
}

package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/oncall-manager/internal/persistence"
)

// deliveryRetention caps the webhook delivery log.
const deliveryRetention = 500

// WebhookRepository implements persistence.WebhookRepository on SQLite.
type WebhookRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewWebhookRepository creates a SQLite webhook repository.
func NewWebhookRepository(pool *ConnectionPool) *WebhookRepository {
	return &WebhookRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// Create inserts a webhook endpoint.
func (r *WebhookRepository) Create(ctx context.Context, webhook *persistence.Webhook) error {
	if webhook.ID == "" {
		return persistence.ErrConstraintViolation
	}
	eventsJSON, err := marshalEvents(webhook.Events)
	if err != nil {
		return err
	}
	_, err = r.helper.Exec(ctx, `
		INSERT INTO webhooks (id, name, type, url, enabled, events, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		webhook.ID, webhook.Name, webhook.Type, webhook.URL,
		webhook.Enabled, eventsJSON, formatTime(webhook.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetByID fetches one webhook.
func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*persistence.Webhook, error) {
	row := r.helper.QueryRow(ctx, webhookSelect+` WHERE id = ?`, id)
	webhook, err := scanWebhook(row)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return webhook, nil
}

// List returns every webhook ordered by name.
func (r *WebhookRepository) List(ctx context.Context) ([]*persistence.Webhook, error) {
	rows, err := r.helper.Query(ctx, webhookSelect+` ORDER BY name`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var webhooks []*persistence.Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, webhook)
	}
	return webhooks, rows.Err()
}

// Update rewrites a webhook.
func (r *WebhookRepository) Update(ctx context.Context, webhook *persistence.Webhook) error {
	eventsJSON, err := marshalEvents(webhook.Events)
	if err != nil {
		return err
	}
	result, err := r.helper.Exec(ctx, `
		UPDATE webhooks SET name = ?, type = ?, url = ?, enabled = ?, events = ? WHERE id = ?`,
		webhook.Name, webhook.Type, webhook.URL, webhook.Enabled, eventsJSON, webhook.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

// Delete removes a webhook. Its delivery log entries are kept for inspection.
func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRows(result)
}

// RecordDelivery appends a delivery attempt and prunes the log to its cap.
func (r *WebhookRepository) RecordDelivery(ctx context.Context, delivery *persistence.WebhookDelivery) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO webhook_deliveries (id, webhook_id, event_kind, status_code, error, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		delivery.ID, delivery.WebhookID, delivery.EventKind,
		delivery.StatusCode, delivery.Error, formatTime(delivery.DeliveredAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	_, err = r.helper.Exec(ctx, `
		DELETE FROM webhook_deliveries WHERE id NOT IN (
			SELECT id FROM webhook_deliveries ORDER BY delivered_at DESC, rowid DESC LIMIT ?
		)`, deliveryRetention)
	return r.mapper.MapError(err)
}

// ListDeliveries returns the most recent delivery attempts, newest first.
func (r *WebhookRepository) ListDeliveries(ctx context.Context, limit int) ([]*persistence.WebhookDelivery, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, webhook_id, event_kind, status_code, error, delivered_at
		FROM webhook_deliveries ORDER BY delivered_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var deliveries []*persistence.WebhookDelivery
	for rows.Next() {
		var (
			delivery  persistence.WebhookDelivery
			delivered string
		)
		if err := rows.Scan(&delivery.ID, &delivery.WebhookID, &delivery.EventKind,
			&delivery.StatusCode, &delivery.Error, &delivered); err != nil {
			return nil, err
		}
		delivery.DeliveredAt = parseTime(delivered)
		deliveries = append(deliveries, &delivery)
	}
	return deliveries, rows.Err()
}

const webhookSelect = `SELECT id, name, type, url, enabled, events, created_at FROM webhooks`

func scanWebhook(scanner rowScanner) (*persistence.Webhook, error) {
	var (
		webhook    persistence.Webhook
		eventsJSON string
		created    string
	)
	if err := scanner.Scan(&webhook.ID, &webhook.Name, &webhook.Type, &webhook.URL,
		&webhook.Enabled, &eventsJSON, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(eventsJSON), &webhook.Events); err != nil {
		return nil, fmt.Errorf("decode webhook events: %w", err)
	}
	webhook.CreatedAt = parseTime(created)
	return &webhook, nil
}

func marshalEvents(events []string) (string, error) {
	if events == nil {
		events = []string{}
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encode webhook events: %w", err)
	}
	return string(raw), nil
}

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/example/oncall-manager/internal/events"
)

// Endpoint is a configured outbound webhook as the dispatcher sees it.
// An empty Events list subscribes the endpoint to every kind.
type Endpoint struct {
	ID      string
	Name    string
	Type    string
	URL     string
	Enabled bool
	Events  []events.Kind
}

// EndpointSource loads the currently configured endpoints. The dispatcher
// reads per event so admin edits apply without a restart.
type EndpointSource interface {
	ListEndpoints(ctx context.Context) ([]Endpoint, error)
}

// Delivery is the outcome of one send attempt.
type Delivery struct {
	WebhookID   string
	EventKind   string
	StatusCode  int
	Error       string
	DeliveredAt time.Time
}

// DeliveryRecorder persists delivery outcomes for inspection. Recording is
// best-effort.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, delivery Delivery)
}

// Sender posts a rendered payload to an endpoint URL and returns the HTTP
// status code.
type Sender interface {
	Send(ctx context.Context, url string, body []byte) (int, error)
}

// HTTPSender delivers payloads over plain HTTP POST with a JSON body.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender builds a sender whose requests time out after the given
// duration. A non-positive timeout falls back to 10 seconds.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("webhook: endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Dispatcher fans events out to every subscribed endpoint. It runs on the
// event bus worker, so one slow endpoint delays later events but never the
// code that emitted them.
type Dispatcher struct {
	source   EndpointSource
	sender   Sender
	recorder DeliveryRecorder
	now      func() time.Time
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher. Nil now and logger fall back to
// production defaults.
func NewDispatcher(source EndpointSource, sender Sender, recorder DeliveryRecorder, now func() time.Time, logger *slog.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{source: source, sender: sender, recorder: recorder, now: now, logger: logger}
}

// Handle delivers one event. It is registered on the bus via SubscribeAll.
func (d *Dispatcher) Handle(ctx context.Context, event events.Event) {
	endpoints, err := d.source.ListEndpoints(ctx)
	if err != nil {
		d.logger.Error("webhook endpoint load failed", "error", err)
		return
	}

	for _, endpoint := range endpoints {
		if !endpoint.Enabled || !subscribed(endpoint, event) {
			continue
		}

		body, err := renderPayload(endpoint.Type, event)
		if err != nil {
			d.logger.Error("webhook payload render failed", "webhook_id", endpoint.ID, "error", err)
			continue
		}

		status, err := d.sender.Send(ctx, endpoint.URL, body)
		delivery := Delivery{
			WebhookID:   endpoint.ID,
			EventKind:   string(event.Kind),
			StatusCode:  status,
			DeliveredAt: d.now(),
		}
		if err != nil {
			delivery.Error = err.Error()
			d.logger.Warn("webhook delivery failed", "webhook_id", endpoint.ID, "kind", event.Kind, "error", err)
		} else {
			d.logger.Debug("webhook delivered", "webhook_id", endpoint.ID, "kind", event.Kind, "status", status)
		}
		if d.recorder != nil {
			d.recorder.RecordDelivery(ctx, delivery)
		}
	}
}

func subscribed(endpoint Endpoint, event events.Event) bool {
	// A test event addresses exactly one endpoint.
	if event.Kind == events.KindWebhookTest {
		id, _ := event.Payload["webhook_id"].(string)
		return id == endpoint.ID
	}
	if len(endpoint.Events) == 0 {
		return true
	}
	for _, kind := range endpoint.Events {
		if kind == event.Kind {
			return true
		}
	}
	return false
}

// summarize renders a one-line human description of the event for chat-style
// endpoints.
func summarize(event events.Event) string {
	var b strings.Builder
	switch event.Kind {
	case events.KindOnCallChanged:
		b.WriteString("On-call schedule changed")
	case events.KindEscalationLevelAdvanced:
		b.WriteString("Escalation advanced to the next level")
	case events.KindEscalationExhausted:
		b.WriteString("Escalation exhausted: nobody answered")
	case events.KindOverrideCreated:
		b.WriteString("Schedule override created")
	case events.KindRotationCreated:
		b.WriteString("Rotation created")
	case events.KindUserCreated:
		b.WriteString("User created")
	case events.KindWebhookTest:
		b.WriteString("Webhook test")
	default:
		b.WriteString(string(event.Kind))
	}

	keys := make([]string, 0, len(event.Payload))
	for key := range event.Payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " | %s=%v", key, event.Payload[key])
	}
	return b.String()
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/oncall-manager/internal/events"
)

type staticEndpoints struct {
	endpoints []Endpoint
	err       error
}

func (s *staticEndpoints) ListEndpoints(context.Context) ([]Endpoint, error) {
	return s.endpoints, s.err
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentRequest
	status int
	err    error
}

type sentRequest struct {
	url  string
	body []byte
}

func (s *fakeSender) Send(_ context.Context, url string, body []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentRequest{url: url, body: body})
	return s.status, s.err
}

type deliveryLog struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (l *deliveryLog) RecordDelivery(_ context.Context, d Delivery) {
	l.mu.Lock()
	l.deliveries = append(l.deliveries, d)
	l.mu.Unlock()
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func TestDispatcher_DeliversToSubscribedEndpoints(t *testing.T) {
	t.Parallel()

	source := &staticEndpoints{endpoints: []Endpoint{
		{ID: "wh-1", Type: "slack", URL: "https://hooks.example/slack", Enabled: true,
			Events: []events.Kind{events.KindOnCallChanged}},
		{ID: "wh-2", Type: "generic", URL: "https://hooks.example/all", Enabled: true},
		{ID: "wh-3", Type: "slack", URL: "https://hooks.example/other", Enabled: true,
			Events: []events.Kind{events.KindUserCreated}},
		{ID: "wh-4", Type: "slack", URL: "https://hooks.example/off", Enabled: false},
	}}
	sender := &fakeSender{status: 200}
	log := &deliveryLog{}
	d := NewDispatcher(source, sender, log, fixedNow, nil)

	d.Handle(context.Background(), events.Event{
		Kind:      events.KindOnCallChanged,
		Timestamp: fixedNow(),
		Payload:   map[string]any{"detail": "override created"},
	})

	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(sender.sent))
	}
	if sender.sent[0].url != "https://hooks.example/slack" || sender.sent[1].url != "https://hooks.example/all" {
		t.Fatalf("wrong endpoints hit: %+v", sender.sent)
	}
	if len(log.deliveries) != 2 || log.deliveries[0].StatusCode != 200 || log.deliveries[0].Error != "" {
		t.Fatalf("deliveries not recorded: %+v", log.deliveries)
	}
}

func TestDispatcher_TestEventTargetsOneEndpoint(t *testing.T) {
	t.Parallel()

	source := &staticEndpoints{endpoints: []Endpoint{
		{ID: "wh-1", Type: "generic", URL: "https://hooks.example/one", Enabled: true},
		{ID: "wh-2", Type: "generic", URL: "https://hooks.example/two", Enabled: true},
	}}
	sender := &fakeSender{status: 204}
	d := NewDispatcher(source, sender, nil, fixedNow, nil)

	d.Handle(context.Background(), events.Event{
		Kind:    events.KindWebhookTest,
		Payload: map[string]any{"webhook_id": "wh-2"},
	})

	if len(sender.sent) != 1 || sender.sent[0].url != "https://hooks.example/two" {
		t.Fatalf("test event should hit only wh-2, got %+v", sender.sent)
	}
}

func TestDispatcher_RecordsFailures(t *testing.T) {
	t.Parallel()

	source := &staticEndpoints{endpoints: []Endpoint{
		{ID: "wh-1", Type: "slack", URL: "https://hooks.example/slack", Enabled: true},
	}}
	sender := &fakeSender{status: 500, err: errors.New("endpoint returned 500")}
	log := &deliveryLog{}
	d := NewDispatcher(source, sender, log, fixedNow, nil)

	d.Handle(context.Background(), events.Event{Kind: events.KindOnCallChanged})

	if len(log.deliveries) != 1 {
		t.Fatalf("expected 1 recorded delivery, got %d", len(log.deliveries))
	}
	if log.deliveries[0].StatusCode != 500 || log.deliveries[0].Error == "" {
		t.Fatalf("failure not recorded: %+v", log.deliveries[0])
	}
}

func TestRenderPayload_Shapes(t *testing.T) {
	t.Parallel()

	event := events.Event{
		Kind:      events.KindEscalationExhausted,
		Timestamp: fixedNow(),
		Payload:   map[string]any{"run_id": "run-1"},
	}

	slack, err := renderPayload("slack", event)
	if err != nil {
		t.Fatalf("slack render failed: %v", err)
	}
	var slackBody map[string]string
	if err := json.Unmarshal(slack, &slackBody); err != nil {
		t.Fatalf("slack payload is not json: %v", err)
	}
	if slackBody["text"] == "" {
		t.Fatal("slack payload needs a text field")
	}

	generic, err := renderPayload("generic", event)
	if err != nil {
		t.Fatalf("generic render failed: %v", err)
	}
	var genericBody map[string]any
	if err := json.Unmarshal(generic, &genericBody); err != nil {
		t.Fatalf("generic payload is not json: %v", err)
	}
	if genericBody["event"] != "escalation_exhausted" {
		t.Fatalf("generic payload missing event kind: %v", genericBody)
	}

	teams, err := renderPayload("teams", event)
	if err != nil {
		t.Fatalf("teams render failed: %v", err)
	}
	var teamsBody map[string]any
	if err := json.Unmarshal(teams, &teamsBody); err != nil {
		t.Fatalf("teams payload is not json: %v", err)
	}
	if teamsBody["@type"] != "MessageCard" {
		t.Fatalf("teams payload should be a MessageCard: %v", teamsBody)
	}
}

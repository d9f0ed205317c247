package webhook

import (
	"encoding/json"
	"time"

	"github.com/example/oncall-manager/internal/events"
)

// renderPayload shapes the event for the endpoint's receiver. Slack, Discord,
// and Teams each expect their own envelope; generic endpoints get the raw
// event.
func renderPayload(endpointType string, event events.Event) ([]byte, error) {
	switch endpointType {
	case "slack":
		return json.Marshal(map[string]any{
			"text": summarize(event),
		})
	case "discord":
		return json.Marshal(map[string]any{
			"content": summarize(event),
		})
	case "teams":
		return json.Marshal(map[string]any{
			"@type":    "MessageCard",
			"@context": "https://schema.org/extensions",
			"summary":  string(event.Kind),
			"title":    "On-call notification",
			"text":     summarize(event),
		})
	default:
		return json.Marshal(map[string]any{
			"event":     string(event.Kind),
			"timestamp": event.Timestamp.UTC().Format(time.RFC3339),
			"payload":   event.Payload,
		})
	}
}

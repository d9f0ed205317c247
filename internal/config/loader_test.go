package config

import (
	"strings"
	"testing"
	"time"

	"github.com/example/oncall-manager/internal/rotation"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"ONCALL_HTTP_PORT", "ONCALL_SQLITE_DSN", "ONCALL_SESSION_TTL",
		"ONCALL_TIMEZONE", "ONCALL_LAST_RESORT_NUMBER", "ONCALL_SLOT_POLICY",
		"ONCALL_EVENT_BUFFER", "ONCALL_WEBHOOK_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("default port wrong: %d", cfg.HTTPPort)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("default session TTL wrong: %v", cfg.SessionTTL)
	}
	if cfg.Timezone != time.UTC {
		t.Fatalf("default timezone wrong: %v", cfg.Timezone)
	}
	if cfg.SlotPolicy != rotation.SlotConsume {
		t.Fatalf("default slot policy wrong: %v", cfg.SlotPolicy)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ONCALL_HTTP_PORT", "9090")
	t.Setenv("ONCALL_SQLITE_DSN", "file:test.db")
	t.Setenv("ONCALL_SESSION_TTL", "30m")
	t.Setenv("ONCALL_TIMEZONE", "America/Chicago")
	t.Setenv("ONCALL_LAST_RESORT_NUMBER", "+15550000")
	t.Setenv("ONCALL_SLOT_POLICY", "reassign")
	t.Setenv("ONCALL_EVENT_BUFFER", "128")
	t.Setenv("ONCALL_WEBHOOK_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9090 || cfg.SQLiteDSN != "file:test.db" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.WebhookTimeout != 5*time.Second {
		t.Fatalf("duration overrides not applied: %+v", cfg)
	}
	if cfg.Timezone.String() != "America/Chicago" {
		t.Fatalf("timezone override not applied: %v", cfg.Timezone)
	}
	if cfg.SlotPolicy != rotation.SlotReassign || cfg.EventBuffer != 128 {
		t.Fatalf("policy/buffer overrides not applied: %+v", cfg)
	}
	if cfg.LastResortNumber != "+15550000" {
		t.Fatalf("last resort number not applied: %q", cfg.LastResortNumber)
	}
}

func TestLoad_InvalidValuesReportedTogether(t *testing.T) {
	t.Setenv("ONCALL_HTTP_PORT", "not-a-port")
	t.Setenv("ONCALL_SESSION_TTL", "soon")
	t.Setenv("ONCALL_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for invalid values")
	}
	for _, key := range []string{"ONCALL_HTTP_PORT", "ONCALL_SESSION_TTL", "ONCALL_TIMEZONE"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error should name %s, got %v", key, err)
		}
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/oncall-manager/internal/rotation"
)

// Config captures environment driven configuration for the on-call service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	SessionTTL       time.Duration
	Timezone         *time.Location
	LastResortNumber string
	SlotPolicy       rotation.SlotPolicy
	EventBuffer      int
	WebhookTimeout   time.Duration
	// AdminPassword seeds the initial administrator account when the user
	// table is empty. Optional; without it no account is seeded.
	AdminPassword string
}

// Load reads a .env file when present, then parses the process environment.
// Optional fields fall back to defaults; unparseable values and missing
// required values are reported together.
func Load() (Config, error) {
	// Absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:oncall.db?_foreign_keys=on",
		SessionTTL:     12 * time.Hour,
		Timezone:       time.UTC,
		SlotPolicy:     rotation.SlotConsume,
		EventBuffer:    64,
		WebhookTimeout: 10 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ONCALL_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ONCALL_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ONCALL_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ONCALL_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ONCALL_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if tzValue := strings.TrimSpace(os.Getenv("ONCALL_TIMEZONE")); tzValue != "" {
		loc, err := time.LoadLocation(tzValue)
		if err != nil {
			invalid = append(invalid, "ONCALL_TIMEZONE")
		} else {
			cfg.Timezone = loc
		}
	}

	cfg.LastResortNumber = strings.TrimSpace(os.Getenv("ONCALL_LAST_RESORT_NUMBER"))
	cfg.AdminPassword = os.Getenv("ONCALL_ADMIN_PASSWORD")

	if policyValue := strings.TrimSpace(os.Getenv("ONCALL_SLOT_POLICY")); policyValue != "" {
		policy, err := rotation.ParseSlotPolicy(policyValue)
		if err != nil {
			invalid = append(invalid, "ONCALL_SLOT_POLICY")
		} else {
			cfg.SlotPolicy = policy
		}
	}

	if bufferValue := strings.TrimSpace(os.Getenv("ONCALL_EVENT_BUFFER")); bufferValue != "" {
		buffer, err := strconv.Atoi(bufferValue)
		if err != nil || buffer <= 0 {
			invalid = append(invalid, "ONCALL_EVENT_BUFFER")
		} else {
			cfg.EventBuffer = buffer
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("ONCALL_WEBHOOK_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "ONCALL_WEBHOOK_TIMEOUT")
		} else {
			cfg.WebhookTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

package http

import (
	"context"
	"log/slog"

	"github.com/example/oncall-manager/internal/application"
	"github.com/example/oncall-manager/internal/logging"
)

type contextKey string

const (
	principalContextKey  contextKey = "principal"
	userIDContextKey     contextKey = "user_id"
	rotationIDContextKey contextKey = "rotation_id"
	overrideIDContextKey contextKey = "override_id"
	webhookIDContextKey  contextKey = "webhook_id"
	runIDContextKey      contextKey = "run_id"
	dateContextKey       contextKey = "date"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithUserID injects the user id resolved from the request path.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDContextKey, id)
}

// UserIDFromContext extracts a user id previously associated with the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// ContextWithRotationID injects the rotation id resolved from the request path.
func ContextWithRotationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, rotationIDContextKey, id)
}

// RotationIDFromContext extracts a rotation id previously associated with the context.
func RotationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(rotationIDContextKey).(string)
	return id, ok
}

// ContextWithOverrideID injects the override id resolved from the request path.
func ContextWithOverrideID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, overrideIDContextKey, id)
}

// OverrideIDFromContext extracts an override id previously associated with the context.
func OverrideIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(overrideIDContextKey).(string)
	return id, ok
}

// ContextWithWebhookID injects the webhook id resolved from the request path.
func ContextWithWebhookID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, webhookIDContextKey, id)
}

// WebhookIDFromContext extracts a webhook id previously associated with the context.
func WebhookIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(webhookIDContextKey).(string)
	return id, ok
}

// ContextWithRunID injects the escalation run id resolved from the request path.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDContextKey, id)
}

// RunIDFromContext extracts an escalation run id previously associated with the context.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDContextKey).(string)
	return id, ok
}

// ContextWithDate injects the calendar date resolved from the request path.
func ContextWithDate(ctx context.Context, date string) context.Context {
	return context.WithValue(ctx, dateContextKey, date)
}

// DateFromContext extracts a calendar date previously associated with the context.
func DateFromContext(ctx context.Context) (string, bool) {
	date, ok := ctx.Value(dateContextKey).(string)
	return date, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request scoped logger when present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

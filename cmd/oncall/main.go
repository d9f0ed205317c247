package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/oncall-manager/internal/application"
	"github.com/example/oncall-manager/internal/config"
	"github.com/example/oncall-manager/internal/escalation"
	"github.com/example/oncall-manager/internal/events"
	httptransport "github.com/example/oncall-manager/internal/http"
	"github.com/example/oncall-manager/internal/logging"
	"github.com/example/oncall-manager/internal/persistence/sqlite"
	"github.com/example/oncall-manager/internal/webhook"
)

func main() {
	logger := logging.New(slog.LevelInfo)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	rotationRepo := sqlite.NewRotationRepository(pool)
	overrideRepo := sqlite.NewOverrideRepository(pool)
	calendarRepo := sqlite.NewCalendarRepository(pool)
	legacyRepo := sqlite.NewLegacyScheduleRepository(pool)
	policyRepo := sqlite.NewPolicyRepository(pool)
	webhookRepo := sqlite.NewWebhookRepository(pool)
	logRepo := sqlite.NewLogRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	users := newUserRepositoryAdapter(userRepo)

	bus := events.NewBus(cfg.EventBuffer, logger)
	defer bus.Close()

	dispatcher := webhook.NewDispatcher(
		newWebhookEndpointAdapter(webhookRepo),
		webhook.NewHTTPSender(cfg.WebhookTimeout),
		newDeliveryRecorderAdapter(webhookRepo, idGenerator),
		now,
		logger,
	)
	bus.SubscribeAll(dispatcher.Handle)

	notifier := application.NewEventNotifier(bus)
	logService := application.NewLogService(newLogStoreAdapter(logRepo), idGenerator, now, logger)

	userService := application.NewUserService(users, logService, notifier, idGenerator, now)
	rotationService := application.NewRotationService(newRotationRepositoryAdapter(rotationRepo), users, logService, notifier, idGenerator, now)
	overrideService := application.NewOverrideService(newOverrideRepositoryAdapter(overrideRepo), users, logService, notifier, idGenerator, now)
	calendarService := application.NewCalendarService(newCalendarRepositoryAdapter(calendarRepo, now), users, logService, notifier, cfg.Timezone, now)
	scheduleService := application.NewScheduleService(newScheduleConfigAdapter(legacyRepo, now), users, logService, notifier)
	policyService := application.NewPolicyService(newPolicyRepositoryAdapter(policyRepo, now), users, logService)
	webhookService := application.NewWebhookService(newWebhookRepositoryAdapter(webhookRepo), logService, notifier, idGenerator, now)
	authService := application.NewAuthService(newCredentialRepositoryAdapter(userRepo), newSessionStoreAdapter(sessionRepo, now), logService, tokenGenerator, now, cfg.SessionTTL)

	resolver := application.NewResolver(
		newSnapshotSourceAdapter(sqlite.NewSnapshotReader(pool, now), cfg.SlotPolicy),
		cfg.Timezone,
		cfg.LastResortNumber,
		logger,
	)
	controller := escalation.NewController(bus, escalation.StdTimerFactory, idGenerator, now, logger)
	escalationService := application.NewEscalationService(resolver, controller, logService, now, logger)

	if err := seedAdminUser(context.Background(), users, cfg.AdminPassword, idGenerator, now, logger); err != nil {
		logger.Error("failed to seed administrator", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		OnCall:      httptransport.NewOnCallHandler(resolver, now, logger),
		Escalations: httptransport.NewEscalationHandler(escalationService, logger),
		Users:       httptransport.NewUserHandler(userService, logger),
		Rotations:   httptransport.NewRotationHandler(rotationService, logger),
		Overrides:   httptransport.NewOverrideHandler(overrideService, logger),
		Calendar:    httptransport.NewCalendarHandler(calendarService, logger),
		Schedule:    httptransport.NewScheduleHandler(scheduleService, logger),
		Policy:      httptransport.NewPolicyHandler(policyService, logger),
		Webhooks:    httptransport.NewWebhookHandler(webhookService, logger),
		Logs:        httptransport.NewLogHandler(logService, logger),

		RequireSession: httptransport.RequireSession(newSessionValidatorAdapter(authService), logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("on-call API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// seedAdminUser creates the initial administrator account when the user table
// is empty, so a fresh install can be configured over the API.
func seedAdminUser(ctx context.Context, users *userRepositoryAdapter, password string, idGenerator func() string, now func() time.Time, logger *slog.Logger) error {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if password == "" {
		logger.Warn("user table is empty and ONCALL_ADMIN_PASSWORD is unset, skipping administrator seed")
		return nil
	}

	hash, err := application.HashPassword(password, application.DefaultArgon2idParams)
	if err != nil {
		return err
	}
	created := now()
	_, err = users.CreateUser(ctx, application.User{
		ID:        idGenerator(),
		Name:      "admin",
		IsAdmin:   true,
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}, hash)
	if err != nil {
		return err
	}
	logger.Info("seeded administrator account", "name", "admin")
	return nil
}

type sessionValidatorAdapter struct {
	auth *application.AuthService
}

func newSessionValidatorAdapter(auth *application.AuthService) *sessionValidatorAdapter {
	return &sessionValidatorAdapter{auth: auth}
}

func (a *sessionValidatorAdapter) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	return a.auth.Authenticate(ctx, token)
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

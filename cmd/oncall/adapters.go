package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/oncall-manager/internal/application"
	"github.com/example/oncall-manager/internal/events"
	"github.com/example/oncall-manager/internal/persistence"
	"github.com/example/oncall-manager/internal/persistence/sqlite"
	"github.com/example/oncall-manager/internal/rotation"
	"github.com/example/oncall-manager/internal/webhook"
)

// mapStorageError translates persistence sentinels into the application
// sentinels the services branch on.
func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	default:
		return err
	}
}

type userRepositoryAdapter struct {
	repo *sqlite.UserRepository
}

func newUserRepositoryAdapter(repo *sqlite.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	model := toPersistenceUser(user, passwordHash)
	if err := a.repo.Create(ctx, &model); err != nil {
		return application.User{}, mapStorageError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByName(ctx context.Context, name string) (application.User, error) {
	stored, err := a.repo.GetByName(ctx, name)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	// An empty hash keeps the stored one; the repository handles that.
	model := toPersistenceUser(user, passwordHash)
	if err := a.repo.Update(ctx, &model); err != nil {
		return application.User{}, mapStorageError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return mapStorageError(a.repo.Delete(ctx, id))
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.List(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

// UserExists satisfies the UserChecker the schedule services validate against.
func (a *userRepositoryAdapter) UserExists(ctx context.Context, id string) (bool, error) {
	if _, err := a.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type credentialRepositoryAdapter struct {
	repo *sqlite.UserRepository
}

func newCredentialRepositoryAdapter(repo *sqlite.UserRepository) *credentialRepositoryAdapter {
	return &credentialRepositoryAdapter{repo: repo}
}

func (a *credentialRepositoryAdapter) GetUserWithHash(ctx context.Context, name string) (application.User, string, error) {
	stored, err := a.repo.GetByName(ctx, name)
	if err != nil {
		return application.User{}, "", mapStorageError(err)
	}
	return toApplicationUser(stored), stored.PasswordHash, nil
}

func (a *credentialRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(stored), nil
}

type rotationRepositoryAdapter struct {
	repo *sqlite.RotationRepository
}

func newRotationRepositoryAdapter(repo *sqlite.RotationRepository) *rotationRepositoryAdapter {
	return &rotationRepositoryAdapter{repo: repo}
}

func (a *rotationRepositoryAdapter) CreateRotation(ctx context.Context, rot application.Rotation) (application.Rotation, error) {
	model := toPersistenceRotation(rot)
	if err := a.repo.Create(ctx, &model); err != nil {
		return application.Rotation{}, mapStorageError(err)
	}
	return a.GetRotation(ctx, rot.ID)
}

func (a *rotationRepositoryAdapter) GetRotation(ctx context.Context, id string) (application.Rotation, error) {
	stored, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return application.Rotation{}, mapStorageError(err)
	}
	return toApplicationRotation(stored)
}

func (a *rotationRepositoryAdapter) UpdateRotation(ctx context.Context, rot application.Rotation) (application.Rotation, error) {
	model := toPersistenceRotation(rot)
	if err := a.repo.Update(ctx, &model); err != nil {
		return application.Rotation{}, mapStorageError(err)
	}
	return a.GetRotation(ctx, rot.ID)
}

func (a *rotationRepositoryAdapter) DeleteRotation(ctx context.Context, id string) error {
	return mapStorageError(a.repo.Delete(ctx, id))
}

func (a *rotationRepositoryAdapter) ListRotations(ctx context.Context) ([]application.Rotation, error) {
	models, err := a.repo.List(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	rotations := make([]application.Rotation, 0, len(models))
	for _, model := range models {
		rot, err := toApplicationRotation(model)
		if err != nil {
			return nil, err
		}
		rotations = append(rotations, rot)
	}
	return rotations, nil
}

type overrideRepositoryAdapter struct {
	repo *sqlite.OverrideRepository
}

func newOverrideRepositoryAdapter(repo *sqlite.OverrideRepository) *overrideRepositoryAdapter {
	return &overrideRepositoryAdapter{repo: repo}
}

func (a *overrideRepositoryAdapter) CreateOverride(ctx context.Context, override application.Override) (application.Override, error) {
	model := toPersistenceOverride(override)
	if err := a.repo.Create(ctx, &model); err != nil {
		return application.Override{}, mapStorageError(err)
	}
	return a.GetOverride(ctx, override.ID)
}

func (a *overrideRepositoryAdapter) GetOverride(ctx context.Context, id string) (application.Override, error) {
	stored, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return application.Override{}, mapStorageError(err)
	}
	return toApplicationOverride(stored), nil
}

func (a *overrideRepositoryAdapter) DeleteOverride(ctx context.Context, id string) error {
	return mapStorageError(a.repo.Delete(ctx, id))
}

func (a *overrideRepositoryAdapter) ListOverrides(ctx context.Context) ([]application.Override, error) {
	models, err := a.repo.List(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	overrides := make([]application.Override, 0, len(models))
	for _, model := range models {
		overrides = append(overrides, toApplicationOverride(model))
	}
	return overrides, nil
}

type calendarRepositoryAdapter struct {
	repo *sqlite.CalendarRepository
	now  func() time.Time
}

func newCalendarRepositoryAdapter(repo *sqlite.CalendarRepository, now func() time.Time) *calendarRepositoryAdapter {
	return &calendarRepositoryAdapter{repo: repo, now: now}
}

func (a *calendarRepositoryAdapter) UpsertCalendarEntry(ctx context.Context, entry application.CalendarEntry) error {
	return mapStorageError(a.repo.Upsert(ctx, &persistence.CalendarEntry{
		Date:      entry.Date,
		UserID:    entry.UserID,
		CreatedAt: a.now(),
	}))
}

func (a *calendarRepositoryAdapter) GetCalendarEntry(ctx context.Context, date time.Time) (application.CalendarEntry, error) {
	stored, err := a.repo.GetByDate(ctx, date)
	if err != nil {
		return application.CalendarEntry{}, mapStorageError(err)
	}
	return application.CalendarEntry{Date: stored.Date, UserID: stored.UserID}, nil
}

func (a *calendarRepositoryAdapter) DeleteCalendarEntry(ctx context.Context, date time.Time) error {
	return mapStorageError(a.repo.DeleteByDate(ctx, date))
}

func (a *calendarRepositoryAdapter) ListCalendarEntries(ctx context.Context, from, to time.Time) ([]application.CalendarEntry, error) {
	models, err := a.repo.ListRange(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	entries := make([]application.CalendarEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, application.CalendarEntry{Date: model.Date, UserID: model.UserID})
	}
	return entries, nil
}

type scheduleConfigAdapter struct {
	repo *sqlite.LegacyScheduleRepository
	now  func() time.Time
}

func newScheduleConfigAdapter(repo *sqlite.LegacyScheduleRepository, now func() time.Time) *scheduleConfigAdapter {
	return &scheduleConfigAdapter{repo: repo, now: now}
}

func (a *scheduleConfigAdapter) ReplaceLegacySchedule(ctx context.Context, cells []application.LegacyCell) error {
	entries := make([]persistence.LegacyScheduleEntry, 0, len(cells))
	for _, cell := range cells {
		entries = append(entries, persistence.LegacyScheduleEntry{
			Weekday:   int(cell.Weekday),
			StartHour: cell.StartHour,
			EndHour:   cell.EndHour,
			UserID:    cell.UserID,
		})
	}
	return mapStorageError(a.repo.ReplaceAll(ctx, entries))
}

func (a *scheduleConfigAdapter) ListLegacySchedule(ctx context.Context) ([]application.LegacyCell, error) {
	entries, err := a.repo.List(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	cells := make([]application.LegacyCell, 0, len(entries))
	for _, entry := range entries {
		cells = append(cells, application.LegacyCell{
			Weekday:   time.Weekday(entry.Weekday),
			StartHour: entry.StartHour,
			EndHour:   entry.EndHour,
			UserID:    entry.UserID,
		})
	}
	return cells, nil
}

func (a *scheduleConfigAdapter) GetScheduleConfig(ctx context.Context) (application.ScheduleConfig, error) {
	stored, err := a.repo.GetConfig(ctx)
	if err != nil {
		return application.ScheduleConfig{}, mapStorageError(err)
	}
	policy, err := rotation.ParseSlotPolicy(stored.SlotPolicy)
	if err != nil {
		return application.ScheduleConfig{}, err
	}
	return application.ScheduleConfig{
		PrimaryUserID: stored.PrimaryUserID,
		SlotPolicy:    policy,
	}, nil
}

func (a *scheduleConfigAdapter) SaveScheduleConfig(ctx context.Context, config application.ScheduleConfig) error {
	return mapStorageError(a.repo.SaveConfig(ctx, &persistence.ScheduleConfig{
		PrimaryUserID: config.PrimaryUserID,
		SlotPolicy:    config.SlotPolicy.String(),
		UpdatedAt:     a.now(),
	}))
}

type policyRepositoryAdapter struct {
	repo *sqlite.PolicyRepository
	now  func() time.Time
}

func newPolicyRepositoryAdapter(repo *sqlite.PolicyRepository, now func() time.Time) *policyRepositoryAdapter {
	return &policyRepositoryAdapter{repo: repo, now: now}
}

func (a *policyRepositoryAdapter) GetPolicy(ctx context.Context) (application.EscalationPolicy, error) {
	stored, err := a.repo.Get(ctx)
	if err != nil {
		return application.EscalationPolicy{}, mapStorageError(err)
	}
	return toApplicationPolicy(stored), nil
}

func (a *policyRepositoryAdapter) SavePolicy(ctx context.Context, policy application.EscalationPolicy) error {
	levels := make([]persistence.PolicyLevel, 0, len(policy.Levels))
	for _, level := range policy.Levels {
		levels = append(levels, persistence.PolicyLevel{
			UserID:         level.UserID,
			TimeoutSeconds: int(level.Timeout / time.Second),
		})
	}
	return mapStorageError(a.repo.Save(ctx, &persistence.EscalationPolicy{
		Enabled:   policy.Enabled,
		Levels:    levels,
		UpdatedAt: a.now(),
	}))
}

type webhookRepositoryAdapter struct {
	repo *sqlite.WebhookRepository
}

func newWebhookRepositoryAdapter(repo *sqlite.WebhookRepository) *webhookRepositoryAdapter {
	return &webhookRepositoryAdapter{repo: repo}
}

func (a *webhookRepositoryAdapter) CreateWebhook(ctx context.Context, hook application.Webhook) (application.Webhook, error) {
	model := toPersistenceWebhook(hook)
	if err := a.repo.Create(ctx, &model); err != nil {
		return application.Webhook{}, mapStorageError(err)
	}
	return a.GetWebhook(ctx, hook.ID)
}

func (a *webhookRepositoryAdapter) GetWebhook(ctx context.Context, id string) (application.Webhook, error) {
	stored, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return application.Webhook{}, mapStorageError(err)
	}
	return toApplicationWebhook(stored), nil
}

func (a *webhookRepositoryAdapter) UpdateWebhook(ctx context.Context, hook application.Webhook) (application.Webhook, error) {
	model := toPersistenceWebhook(hook)
	if err := a.repo.Update(ctx, &model); err != nil {
		return application.Webhook{}, mapStorageError(err)
	}
	return a.GetWebhook(ctx, hook.ID)
}

func (a *webhookRepositoryAdapter) DeleteWebhook(ctx context.Context, id string) error {
	return mapStorageError(a.repo.Delete(ctx, id))
}

func (a *webhookRepositoryAdapter) ListWebhooks(ctx context.Context) ([]application.Webhook, error) {
	models, err := a.repo.List(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	hooks := make([]application.Webhook, 0, len(models))
	for _, model := range models {
		hooks = append(hooks, toApplicationWebhook(model))
	}
	return hooks, nil
}

func (a *webhookRepositoryAdapter) ListDeliveries(ctx context.Context, limit int) ([]application.WebhookDelivery, error) {
	models, err := a.repo.ListDeliveries(ctx, limit)
	if err != nil {
		return nil, mapStorageError(err)
	}
	deliveries := make([]application.WebhookDelivery, 0, len(models))
	for _, model := range models {
		deliveries = append(deliveries, application.WebhookDelivery{
			ID:          model.ID,
			WebhookID:   model.WebhookID,
			EventKind:   model.EventKind,
			StatusCode:  model.StatusCode,
			Error:       model.Error,
			DeliveredAt: model.DeliveredAt,
		})
	}
	return deliveries, nil
}

type logStoreAdapter struct {
	repo *sqlite.LogRepository
}

func newLogStoreAdapter(repo *sqlite.LogRepository) *logStoreAdapter {
	return &logStoreAdapter{repo: repo}
}

func (a *logStoreAdapter) AppendAudit(ctx context.Context, entry application.AuditEntry) error {
	return mapStorageError(a.repo.AppendAudit(ctx, &persistence.AuditEntry{
		ID:        entry.ID,
		Actor:     entry.Actor,
		Action:    entry.Action,
		Detail:    entry.Detail,
		CreatedAt: entry.CreatedAt,
	}))
}

func (a *logStoreAdapter) ListAudit(ctx context.Context, limit int) ([]application.AuditEntry, error) {
	models, err := a.repo.ListAudit(ctx, limit)
	if err != nil {
		return nil, mapStorageError(err)
	}
	entries := make([]application.AuditEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, application.AuditEntry{
			ID:        model.ID,
			Actor:     model.Actor,
			Action:    model.Action,
			Detail:    model.Detail,
			CreatedAt: model.CreatedAt,
		})
	}
	return entries, nil
}

func (a *logStoreAdapter) AppendCall(ctx context.Context, record application.CallRecord) error {
	return mapStorageError(a.repo.AppendCall(ctx, &persistence.CallHistoryEntry{
		ID:         record.ID,
		CallRef:    record.CallRef,
		Caller:     record.Caller,
		UserID:     record.UserID,
		Source:     record.Source,
		Outcome:    record.Outcome,
		OccurredAt: record.OccurredAt,
	}))
}

func (a *logStoreAdapter) ListCalls(ctx context.Context, limit int) ([]application.CallRecord, error) {
	models, err := a.repo.ListCalls(ctx, limit)
	if err != nil {
		return nil, mapStorageError(err)
	}
	records := make([]application.CallRecord, 0, len(models))
	for _, model := range models {
		records = append(records, application.CallRecord{
			ID:         model.ID,
			CallRef:    model.CallRef,
			Caller:     model.Caller,
			UserID:     model.UserID,
			Source:     model.Source,
			Outcome:    model.Outcome,
			OccurredAt: model.OccurredAt,
		})
	}
	return records, nil
}

type sessionStoreAdapter struct {
	repo *sqlite.SessionRepository
	now  func() time.Time
}

func newSessionStoreAdapter(repo *sqlite.SessionRepository, now func() time.Time) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo, now: now}
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session application.Session) error {
	return mapStorageError(a.repo.Create(ctx, &persistence.Session{
		Token:     session.Token,
		UserID:    session.UserID,
		CreatedAt: a.now(),
		ExpiresAt: session.ExpiresAt,
	}))
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetByToken(ctx, token)
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return application.Session{
		Token:     stored.Token,
		UserID:    stored.UserID,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (a *sessionStoreAdapter) DeleteSession(ctx context.Context, token string) error {
	return mapStorageError(a.repo.Delete(ctx, token))
}

func (a *sessionStoreAdapter) DeleteExpiredSessions(ctx context.Context, before time.Time) error {
	return mapStorageError(a.repo.DeleteExpired(ctx, before))
}

// snapshotSourceAdapter converts the stored snapshot into the resolver's
// value form. A missing schedule_config row falls back to the configured
// default slot policy.
type snapshotSourceAdapter struct {
	reader            *sqlite.SnapshotReader
	defaultSlotPolicy rotation.SlotPolicy
}

func newSnapshotSourceAdapter(reader *sqlite.SnapshotReader, defaultSlotPolicy rotation.SlotPolicy) *snapshotSourceAdapter {
	return &snapshotSourceAdapter{reader: reader, defaultSlotPolicy: defaultSlotPolicy}
}

func (a *snapshotSourceAdapter) Snapshot(ctx context.Context) (application.Snapshot, error) {
	stored, err := a.reader.Snapshot(ctx)
	if err != nil {
		return application.Snapshot{}, mapStorageError(err)
	}

	snap := application.Snapshot{TakenAt: stored.TakenAt}

	snap.Users = make([]application.User, 0, len(stored.Users))
	for i := range stored.Users {
		snap.Users = append(snap.Users, toApplicationUser(&stored.Users[i]))
	}

	snap.Rotations = make([]application.Rotation, 0, len(stored.Rotations))
	for i := range stored.Rotations {
		rot, err := toApplicationRotation(&stored.Rotations[i])
		if err != nil {
			return application.Snapshot{}, err
		}
		snap.Rotations = append(snap.Rotations, rot)
	}

	snap.Overrides = make([]application.Override, 0, len(stored.Overrides))
	for i := range stored.Overrides {
		snap.Overrides = append(snap.Overrides, toApplicationOverride(&stored.Overrides[i]))
	}

	snap.Calendar = make([]application.CalendarEntry, 0, len(stored.Calendar))
	for _, entry := range stored.Calendar {
		snap.Calendar = append(snap.Calendar, application.CalendarEntry{Date: entry.Date, UserID: entry.UserID})
	}

	snap.Legacy = make([]application.LegacyCell, 0, len(stored.Legacy))
	for _, entry := range stored.Legacy {
		snap.Legacy = append(snap.Legacy, application.LegacyCell{
			Weekday:   time.Weekday(entry.Weekday),
			StartHour: entry.StartHour,
			EndHour:   entry.EndHour,
			UserID:    entry.UserID,
		})
	}

	policy := a.defaultSlotPolicy
	if stored.Config.SlotPolicy != "" {
		parsed, err := rotation.ParseSlotPolicy(stored.Config.SlotPolicy)
		if err != nil {
			return application.Snapshot{}, err
		}
		policy = parsed
	}
	snap.Config = application.ScheduleConfig{
		PrimaryUserID: stored.Config.PrimaryUserID,
		SlotPolicy:    policy,
	}

	snap.Policy = toApplicationPolicy(&stored.Policy)
	return snap, nil
}

// webhookEndpointAdapter exposes stored webhooks to the dispatcher.
type webhookEndpointAdapter struct {
	repo *sqlite.WebhookRepository
}

func newWebhookEndpointAdapter(repo *sqlite.WebhookRepository) *webhookEndpointAdapter {
	return &webhookEndpointAdapter{repo: repo}
}

func (a *webhookEndpointAdapter) ListEndpoints(ctx context.Context) ([]webhook.Endpoint, error) {
	models, err := a.repo.List(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	endpoints := make([]webhook.Endpoint, 0, len(models))
	for _, model := range models {
		kinds := make([]events.Kind, 0, len(model.Events))
		for _, event := range model.Events {
			kinds = append(kinds, events.Kind(event))
		}
		endpoints = append(endpoints, webhook.Endpoint{
			ID:      model.ID,
			Name:    model.Name,
			Type:    model.Type,
			URL:     model.URL,
			Enabled: model.Enabled,
			Events:  kinds,
		})
	}
	return endpoints, nil
}

// deliveryRecorderAdapter persists dispatcher outcomes.
type deliveryRecorderAdapter struct {
	repo        *sqlite.WebhookRepository
	idGenerator func() string
}

func newDeliveryRecorderAdapter(repo *sqlite.WebhookRepository, idGenerator func() string) *deliveryRecorderAdapter {
	return &deliveryRecorderAdapter{repo: repo, idGenerator: idGenerator}
}

func (a *deliveryRecorderAdapter) RecordDelivery(ctx context.Context, delivery webhook.Delivery) {
	_ = a.repo.RecordDelivery(ctx, &persistence.WebhookDelivery{
		ID:          a.idGenerator(),
		WebhookID:   delivery.WebhookID,
		EventKind:   delivery.EventKind,
		StatusCode:  delivery.StatusCode,
		Error:       delivery.Error,
		DeliveredAt: delivery.DeliveredAt,
	})
}

func toApplicationUser(model *persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Phone:     model.Phone,
		Timezone:  model.Timezone,
		IsAdmin:   model.IsAdmin,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Phone:        user.Phone,
		Timezone:     user.Timezone,
		IsAdmin:      user.IsAdmin,
		Active:       user.Active,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationRotation(model *persistence.Rotation) (application.Rotation, error) {
	cycle, err := rotation.ParseCycleType(model.Cycle)
	if err != nil {
		return application.Rotation{}, err
	}
	return application.Rotation{
		ID:        model.ID,
		Name:      model.Name,
		Cycle:     cycle,
		StartDate: model.StartDate,
		MemberIDs: append([]string(nil), model.MemberIDs...),
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toPersistenceRotation(rot application.Rotation) persistence.Rotation {
	return persistence.Rotation{
		ID:        rot.ID,
		Name:      rot.Name,
		Cycle:     rot.Cycle.String(),
		StartDate: rot.StartDate,
		MemberIDs: append([]string(nil), rot.MemberIDs...),
		Active:    rot.Active,
		CreatedAt: rot.CreatedAt,
		UpdatedAt: rot.UpdatedAt,
	}
}

func toApplicationOverride(model *persistence.Override) application.Override {
	return application.Override{
		ID:        model.ID,
		UserID:    model.UserID,
		StartAt:   model.StartAt,
		EndAt:     model.EndAt,
		Reason:    model.Reason,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceOverride(override application.Override) persistence.Override {
	return persistence.Override{
		ID:        override.ID,
		UserID:    override.UserID,
		StartAt:   override.StartAt,
		EndAt:     override.EndAt,
		Reason:    override.Reason,
		CreatedAt: override.CreatedAt,
	}
}

func toApplicationPolicy(model *persistence.EscalationPolicy) application.EscalationPolicy {
	levels := make([]application.PolicyLevel, 0, len(model.Levels))
	for _, level := range model.Levels {
		levels = append(levels, application.PolicyLevel{
			UserID:  level.UserID,
			Timeout: time.Duration(level.TimeoutSeconds) * time.Second,
		})
	}
	return application.EscalationPolicy{Enabled: model.Enabled, Levels: levels}
}

func toPersistenceWebhook(hook application.Webhook) persistence.Webhook {
	eventNames := make([]string, 0, len(hook.Events))
	for _, kind := range hook.Events {
		eventNames = append(eventNames, string(kind))
	}
	return persistence.Webhook{
		ID:        hook.ID,
		Name:      hook.Name,
		Type:      hook.Type,
		URL:       hook.URL,
		Enabled:   hook.Enabled,
		Events:    eventNames,
		CreatedAt: hook.CreatedAt,
	}
}

func toApplicationWebhook(model *persistence.Webhook) application.Webhook {
	kinds := make([]events.Kind, 0, len(model.Events))
	for _, event := range model.Events {
		kinds = append(kinds, events.Kind(event))
	}
	return application.Webhook{
		ID:        model.ID,
		Name:      model.Name,
		Type:      model.Type,
		URL:       model.URL,
		Enabled:   model.Enabled,
		Events:    kinds,
		CreatedAt: model.CreatedAt,
	}
}

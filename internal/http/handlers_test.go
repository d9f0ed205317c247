package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/oncall-manager/internal/application"
	"github.com/example/oncall-manager/internal/escalation"
)

type stubResolver struct {
	target    application.DialTarget
	chain     []application.ChainLink
	days      []application.DayAssignment
	err       error
	lastAt    time.Time
	lastRange [2]time.Time
}

func (s *stubResolver) Resolve(ctx context.Context, at time.Time) (application.Resolution, error) {
	return application.Resolution{}, s.err
}

func (s *stubResolver) ResolveTarget(ctx context.Context, at time.Time) (application.DialTarget, error) {
	s.lastAt = at
	if s.err != nil {
		return application.DialTarget{}, s.err
	}
	return s.target, nil
}

func (s *stubResolver) EscalationChain(ctx context.Context, at time.Time) ([]application.ChainLink, error) {
	s.lastAt = at
	if s.err != nil {
		return nil, s.err
	}
	return s.chain, nil
}

func (s *stubResolver) RangeSchedule(ctx context.Context, from, to time.Time) ([]application.DayAssignment, error) {
	s.lastRange = [2]time.Time{from, to}
	if s.err != nil {
		return nil, s.err
	}
	return s.days, nil
}

type stubEscalations struct {
	started application.StartedEscalation
	run     escalation.Run
	known   bool
	err     error
	signals []string
}

func (s *stubEscalations) Start(ctx context.Context, callRef, caller string) (application.StartedEscalation, error) {
	if s.err != nil {
		return application.StartedEscalation{}, s.err
	}
	return s.started, nil
}

func (s *stubEscalations) Answered(ctx context.Context, runID string) error {
	s.signals = append(s.signals, "answered:"+runID)
	return s.err
}

func (s *stubEscalations) CallEnded(ctx context.Context, runID string) error {
	s.signals = append(s.signals, "ended:"+runID)
	return s.err
}

func (s *stubEscalations) Status(runID string) (escalation.Run, bool) {
	return s.run, s.known
}

type stubValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (s *stubValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

type stubUsers struct {
	users []application.User
	err   error
}

func (s *stubUsers) CreateUser(ctx context.Context, principal application.Principal, input application.UserInput) (application.User, error) {
	if s.err != nil {
		return application.User{}, s.err
	}
	return application.User{ID: "u-new", Name: input.Name}, nil
}

func (s *stubUsers) UpdateUser(ctx context.Context, principal application.Principal, userID string, input application.UserInput) (application.User, error) {
	return application.User{}, s.err
}

func (s *stubUsers) DeleteUser(ctx context.Context, principal application.Principal, userID string) error {
	return s.err
}

func (s *stubUsers) GetUser(ctx context.Context, userID string) (application.User, error) {
	if s.err != nil {
		return application.User{}, s.err
	}
	return application.User{ID: userID}, nil
}

func (s *stubUsers) ListUsers(ctx context.Context) ([]application.User, error) {
	return s.users, s.err
}

func TestOnCallEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("current returns the dial target", func(t *testing.T) {
		t.Parallel()
		resolver := &stubResolver{target: application.DialTarget{
			UserID:   "u-1",
			UserName: "alice",
			Phone:    "+15550001",
			Source:   application.SourceRotation,
		}}
		router := NewRouter(RouterConfig{
			OnCall: NewOnCallHandler(resolver, nil, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oncall/current", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body dialTargetResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.UserID != "u-1" || body.Phone != "+15550001" || body.Source != "rotation" {
			t.Fatalf("unexpected body: %+v", body)
		}
		if body.LastResort {
			t.Fatal("last_resort should be false for a scheduled assignee")
		}
	})

	t.Run("current honors the at parameter", func(t *testing.T) {
		t.Parallel()
		resolver := &stubResolver{}
		router := NewRouter(RouterConfig{
			OnCall: NewOnCallHandler(resolver, nil, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oncall/current?at=2025-06-10T09:00:00Z", nil))

		want := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
		if !resolver.lastAt.Equal(want) {
			t.Fatalf("resolver got at=%v, want %v", resolver.lastAt, want)
		}
	})

	t.Run("current rejects a malformed instant", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{
			OnCall: NewOnCallHandler(&stubResolver{}, nil, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oncall/current?at=tomorrow", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("no configured on-call maps to 404 with an error code", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{
			OnCall: NewOnCallHandler(&stubResolver{err: application.ErrNoOnCallConfigured}, nil, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oncall/chain", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		var body errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.ErrorCode != "NO_ONCALL_CONFIGURED" {
			t.Fatalf("error_code = %q", body.ErrorCode)
		}
	})

	t.Run("schedule requires valid date bounds", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{
			OnCall: NewOnCallHandler(&stubResolver{}, nil, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oncall/schedule?from=2025-06-01&to=junk", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestEscalationEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("start returns the run id and chain", func(t *testing.T) {
		t.Parallel()
		service := &stubEscalations{started: application.StartedEscalation{
			RunID: "run-1",
			Chain: []application.ChainLink{
				{Level: 0, UserID: "u-1", Name: "alice", Phone: "+15550001", Timeout: 30 * time.Second},
				{Level: 1, UserID: "u-2", Name: "bob", Phone: "+15550002", Timeout: 45 * time.Second},
			},
		}}
		router := NewRouter(RouterConfig{
			Escalations: NewEscalationHandler(service, nil),
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/escalations",
			strings.NewReader(`{"call_ref":"call-9","caller":"+15559999"}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		var body startEscalationResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.RunID != "run-1" || len(body.Chain) != 2 {
			t.Fatalf("unexpected body: %+v", body)
		}
		if body.Chain[1].TimeoutSeconds != 45 {
			t.Fatalf("timeout_seconds = %d, want 45", body.Chain[1].TimeoutSeconds)
		}
	})

	t.Run("signals reach the service with the path run id", func(t *testing.T) {
		t.Parallel()
		service := &stubEscalations{}
		router := NewRouter(RouterConfig{
			Escalations: NewEscalationHandler(service, nil),
		})

		for _, path := range []string{"/escalations/run-7/answered", "/escalations/run-7/ended"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
			if rec.Code != http.StatusNoContent {
				t.Fatalf("%s: status = %d, want 204", path, rec.Code)
			}
		}
		if len(service.signals) != 2 || service.signals[0] != "answered:run-7" || service.signals[1] != "ended:run-7" {
			t.Fatalf("signals = %v", service.signals)
		}
	})

	t.Run("unknown run maps to 404", func(t *testing.T) {
		t.Parallel()
		service := &stubEscalations{err: escalation.ErrUnknownRun}
		router := NewRouter(RouterConfig{
			Escalations: NewEscalationHandler(service, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/escalations/missing/answered", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("status reports run state", func(t *testing.T) {
		t.Parallel()
		service := &stubEscalations{
			known: true,
			run: escalation.Run{
				ID:      "run-1",
				CallRef: "call-9",
				Levels:  []escalation.Level{{UserID: "u-1"}, {UserID: "u-2"}},
				Level:   1,
				State:   escalation.StateEscalating,
			},
		}
		router := NewRouter(RouterConfig{
			Escalations: NewEscalationHandler(service, nil),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/escalations/run-1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body runStatusResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.State != "escalating" || body.Level != 1 || body.Levels != 2 {
			t.Fatalf("unexpected body: %+v", body)
		}
	})
}

func TestAdminRoutesRequireSession(t *testing.T) {
	t.Parallel()

	newProtectedRouter := func(validator SessionValidator, users userService) http.Handler {
		return NewRouter(RouterConfig{
			Users:          NewUserHandler(users, nil),
			RequireSession: RequireSession(validator, nil),
		})
	}

	t.Run("missing token is rejected", func(t *testing.T) {
		t.Parallel()
		router := newProtectedRouter(&stubValidator{}, &stubUsers{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		t.Parallel()
		router := newProtectedRouter(&stubValidator{err: application.ErrUnauthorized}, &stubUsers{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired session maps to 401", func(t *testing.T) {
		t.Parallel()
		router := newProtectedRouter(&stubValidator{err: application.ErrSessionExpired}, &stubUsers{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer stale")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		t.Parallel()
		validator := &stubValidator{principal: application.Principal{UserID: "admin-1", IsAdmin: true}}
		router := newProtectedRouter(validator, &stubUsers{users: []application.User{{ID: "u-1", Name: "alice"}}})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "good-token" {
			t.Fatalf("validator saw tokens %v", validator.tokens)
		}
		var body listUsersResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Users) != 1 || body.Users[0].Name != "alice" {
			t.Fatalf("unexpected body: %+v", body)
		}
	})

	t.Run("service validation errors surface field details", func(t *testing.T) {
		t.Parallel()
		vErr := &application.ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		validator := &stubValidator{principal: application.Principal{UserID: "admin-1", IsAdmin: true}}
		router := newProtectedRouter(validator, &stubUsers{err: vErr})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":""}`))
		req.Header.Set("Authorization", "Bearer good-token")
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var body errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Errors["name"] != "name is required" {
			t.Fatalf("errors = %v", body.Errors)
		}
	})
}

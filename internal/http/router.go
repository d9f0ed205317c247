package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers into the route table. The on-call read
// endpoints and the escalation lifecycle stay open for the telephony host;
// everything under administration requires a session.
type RouterConfig struct {
	Auth        *AuthHandler
	OnCall      *OnCallHandler
	Escalations *EscalationHandler
	Users       *UserHandler
	Rotations   *RotationHandler
	Overrides   *OverrideHandler
	Calendar    *CalendarHandler
	Schedule    *ScheduleHandler
	Policy      *PolicyHandler
	Webhooks    *WebhookHandler
	Logs        *LogHandler

	// RequireSession wraps the administrative routes. Leaving it nil keeps
	// them open, which only makes sense in tests.
	RequireSession func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(handler http.HandlerFunc) http.HandlerFunc {
		if cfg.RequireSession == nil {
			return handler
		}
		wrapped := cfg.RequireSession(handler)
		return wrapped.ServeHTTP
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.OnCall != nil {
		mux.HandleFunc("/oncall/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.OnCall.Current(w, r)
		})
		mux.HandleFunc("/oncall/chain", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.OnCall.Chain(w, r)
		})
		mux.HandleFunc("/oncall/schedule", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.OnCall.Schedule(w, r)
		})
	}

	if cfg.Escalations != nil {
		mux.HandleFunc("/escalations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Escalations.Start(w, r)
		})
		mux.HandleFunc("/escalations/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/escalations/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, action, _ := strings.Cut(rest, "/")
			r = r.WithContext(ContextWithRunID(r.Context(), id))
			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Escalations.Status(w, r)
			case "answered":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Escalations.Answered(w, r)
			case "ended":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Escalations.Ended(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Users != nil {
		mux.HandleFunc("/users", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.HandleFunc("/users/", protect(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/users/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithUserID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Users.Get(w, r)
			case http.MethodPut:
				cfg.Users.Update(w, r)
			case http.MethodDelete:
				cfg.Users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Rotations != nil {
		mux.HandleFunc("/rotations", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rotations.List(w, r)
			case http.MethodPost:
				cfg.Rotations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.HandleFunc("/rotations/", protect(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/rotations/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithRotationID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Rotations.Get(w, r)
			case http.MethodPut:
				cfg.Rotations.Update(w, r)
			case http.MethodDelete:
				cfg.Rotations.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Overrides != nil {
		mux.HandleFunc("/overrides", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Overrides.List(w, r)
			case http.MethodPost:
				cfg.Overrides.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.HandleFunc("/overrides/", protect(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/overrides/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithOverrideID(r.Context(), id))
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Overrides.Delete(w, r)
		}))
	}

	if cfg.Calendar != nil {
		mux.HandleFunc("/calendar", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Calendar.List(w, r)
		}))
		mux.HandleFunc("/calendar/", protect(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/calendar/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			if rest == "import" {
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Calendar.Import(w, r)
				return
			}
			r = r.WithContext(ContextWithDate(r.Context(), rest))
			switch r.Method {
			case http.MethodPut:
				cfg.Calendar.SetDay(w, r)
			case http.MethodDelete:
				cfg.Calendar.ClearDay(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Schedule != nil {
		mux.HandleFunc("/schedule/legacy", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedule.ListLegacy(w, r)
			case http.MethodPut:
				cfg.Schedule.ReplaceLegacy(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		}))
		mux.HandleFunc("/schedule/config", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedule.GetConfig(w, r)
			case http.MethodPut:
				cfg.Schedule.UpdateConfig(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		}))
	}

	if cfg.Policy != nil {
		mux.HandleFunc("/escalation-policy", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Policy.Get(w, r)
			case http.MethodPut:
				cfg.Policy.Update(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		}))
	}

	if cfg.Webhooks != nil {
		mux.HandleFunc("/webhooks", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Webhooks.List(w, r)
			case http.MethodPost:
				cfg.Webhooks.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.HandleFunc("/webhooks/", protect(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/webhooks/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, action, _ := strings.Cut(rest, "/")
			r = r.WithContext(ContextWithWebhookID(r.Context(), id))
			switch action {
			case "":
				switch r.Method {
				case http.MethodPut:
					cfg.Webhooks.Update(w, r)
				case http.MethodDelete:
					cfg.Webhooks.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodPut, http.MethodDelete)
				}
			case "test":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Webhooks.Test(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
		mux.HandleFunc("/webhook-deliveries", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Webhooks.Deliveries(w, r)
		}))
	}

	if cfg.Logs != nil {
		mux.HandleFunc("/logs/audit", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Logs.Audit(w, r)
		}))
		mux.HandleFunc("/logs/calls", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Logs.Calls(w, r)
		}))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

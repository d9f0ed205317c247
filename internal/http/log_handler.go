package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/oncall-manager/internal/application"
)

type logService interface {
	ListAudit(ctx context.Context, limit int) ([]application.AuditEntry, error)
	ListCalls(ctx context.Context, limit int) ([]application.CallRecord, error)
}

type LogHandler struct {
	service   logService
	responder responder
	logger    *slog.Logger
}

func NewLogHandler(service logService, logger *slog.Logger) *LogHandler {
	base := defaultLogger(logger)
	return &LogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LogHandler", operation, attrs...)
}

func (h *LogHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entries, err := h.service.ListAudit(r.Context(), limitParam(r, 0))
	if err != nil {
		h.log(r.Context(), "Audit").ErrorContext(r.Context(), "audit listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]auditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditEntryDTO{
			ID:        entry.ID,
			Actor:     entry.Actor,
			Action:    entry.Action,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAuditResponse{Entries: out})
}

func (h *LogHandler) Calls(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	records, err := h.service.ListCalls(r.Context(), limitParam(r, 0))
	if err != nil {
		h.log(r.Context(), "Calls").ErrorContext(r.Context(), "call history listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]callRecordDTO, 0, len(records))
	for _, record := range records {
		out = append(out, callRecordDTO{
			ID:         record.ID,
			CallRef:    record.CallRef,
			Caller:     record.Caller,
			UserID:     record.UserID,
			Source:     record.Source,
			Outcome:    record.Outcome,
			OccurredAt: record.OccurredAt,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCallsResponse{Calls: out})
}

type auditEntryDTO struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type listAuditResponse struct {
	Entries []auditEntryDTO `json:"entries"`
}

type callRecordDTO struct {
	ID         string    `json:"id"`
	CallRef    string    `json:"call_ref"`
	Caller     string    `json:"caller,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Source     string    `json:"source"`
	Outcome    string    `json:"outcome"`
	OccurredAt time.Time `json:"occurred_at"`
}

type listCallsResponse struct {
	Calls []callRecordDTO `json:"calls"`
}

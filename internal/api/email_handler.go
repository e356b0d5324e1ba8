package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/api/shared"
	"github.com/phrazzld/boardnotify/internal/notify"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
)

// EmailQueuer queues an email request.
type EmailQueuer interface {
	QueueEmail(ctx context.Context, req notify.EmailRequest) (uuid.UUID, error)
}

// EmailHandler lets other services queue notification emails.
type EmailHandler struct {
	queuer EmailQueuer
	logger *slog.Logger
}

// NewEmailHandler creates an EmailHandler.
func NewEmailHandler(queuer EmailQueuer, logger *slog.Logger) *EmailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailHandler{
		queuer: queuer,
		logger: logger.With(slog.String("component", "email_handler")),
	}
}

// Enqueue handles POST /api/emails.
func (h *EmailHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req notify.EmailRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	id, err := h.queuer.QueueEmail(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	subject, _ := shared.GetSubject(r.Context())
	log.Info("email queued via API",
		slog.String("email_id", id.String()),
		slog.String("template", req.Template),
		slog.String("caller", subject))
	shared.RespondWithJSON(w, r, http.StatusCreated, EnqueueResponse{ID: id})
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/boardnotify/internal/api/shared"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/redact"
	"github.com/phrazzld/boardnotify/internal/reminder"
	"github.com/phrazzld/boardnotify/internal/scheduler"
	"github.com/phrazzld/boardnotify/internal/store"
)

// ReminderRunner runs one reminder pass.
type ReminderRunner interface {
	SendReminderEmails(ctx context.Context) (*reminder.Summary, error)
}

// QueueStatsReader reads queue statistics.
type QueueStatsReader interface {
	Stats(ctx context.Context, window time.Duration, now time.Time) (*domain.QueueStats, error)
}

// SchedulerStatus reports the scheduler's registered jobs.
type SchedulerStatus interface {
	Status() scheduler.Status
}

// ReminderHandlerConfig carries the feature flags reported by the status endpoints.
type ReminderHandlerConfig struct {
	ReminderEnabled bool
	QueueEnabled    bool
}

// ReminderHandler serves the reminder trigger and the status probes.
type ReminderHandler struct {
	runner    ReminderRunner
	queue     QueueStatsReader
	scheduler SchedulerStatus
	config    ReminderHandlerConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewReminderHandler creates a ReminderHandler. scheduler may be nil.
func NewReminderHandler(
	runner ReminderRunner,
	queue QueueStatsReader,
	scheduler SchedulerStatus,
	config ReminderHandlerConfig,
	logger *slog.Logger,
) *ReminderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderHandler{
		runner:    runner,
		queue:     queue,
		scheduler: scheduler,
		config:    config,
		logger:    logger.With(slog.String("component", "reminder_handler")),
		now:       time.Now,
	}
}

// Trigger handles POST /reminders/trigger. Authentication is enforced by
// middleware.RequireTriggerSecret.
func (h *ReminderHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	summary, err := h.runner.SendReminderEmails(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Reminder run failed", err)
		return
	}

	log.Info("reminders triggered on demand",
		slog.Bool("skipped", summary.Skipped),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed))
	shared.RespondWithJSON(w, r, http.StatusOK, TriggerResponse{Status: StatusOK, Summary: summary})
}

// Status handles GET /reminders/status.
func (h *ReminderHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:       StatusOK,
		Enabled:      h.config.ReminderEnabled,
		QueueEnabled: h.config.QueueEnabled,
	}
	if h.scheduler != nil {
		status := h.scheduler.Status()
		resp.Scheduler = &status
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// QueueHealth handles GET /reminders/queue-health.
func (h *ReminderHandler) QueueHealth(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	stats, err := h.queue.Stats(r.Context(), store.DefaultStatsWindow, h.now().UTC())
	if err != nil {
		log.Error("failed to read queue stats",
			slog.String("error", redact.Error(err)),
			slog.String("trace_id", shared.GetTraceID(r.Context())))
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, QueueHealthResponse{
			Status:  StatusError,
			Enabled: h.config.QueueEnabled,
			Error:   GetSafeErrorMessage(err),
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, QueueHealthResponse{
		Status:  StatusOK,
		Enabled: h.config.QueueEnabled,
		Stats:   stats,
	})
}

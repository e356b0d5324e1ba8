package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/reminder"
	"github.com/phrazzld/boardnotify/internal/scheduler"
)

// Response status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// TriggerResponse is returned by the on-demand reminder trigger.
type TriggerResponse struct {
	Status  string            `json:"status"`
	Summary *reminder.Summary `json:"summary"`
}

// StatusResponse reports whether reminders are enabled.
type StatusResponse struct {
	Status       string            `json:"status"`
	Enabled      bool              `json:"enabled"`
	QueueEnabled bool              `json:"queueEnabled"`
	Scheduler    *scheduler.Status `json:"scheduler,omitempty"`
}

// QueueHealthResponse reports queue statistics for the last day.
type QueueHealthResponse struct {
	Status  string             `json:"status"`
	Enabled bool               `json:"enabled"`
	Stats   *domain.QueueStats `json:"stats,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// EnqueueResponse is returned when an email is queued.
type EnqueueResponse struct {
	ID uuid.UUID `json:"id"`
}

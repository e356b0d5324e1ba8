package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ReminderLogEntry
var (
	ErrEmptyReminderTaskID = errors.New("reminder task ID cannot be empty")
	ErrEmptyReminderUserID = errors.New("reminder user ID cannot be empty")
	ErrEmptyRemindedOn     = errors.New("reminder date cannot be empty")
)

// ReminderLogEntry records that a task's assignee was successfully reminded on
// a calendar day. At most one entry exists per (TaskID, UserID, RemindedOn).
type ReminderLogEntry struct {
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	RemindedOn time.Time `json:"reminded_on"`
}

// NewReminderLogEntry creates a log entry for the calendar day of day.
func NewReminderLogEntry(taskID, userID uuid.UUID, day time.Time) (*ReminderLogEntry, error) {
	entry := &ReminderLogEntry{
		TaskID:     taskID,
		UserID:     userID,
		RemindedOn: Day(day, time.UTC),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks if the ReminderLogEntry has valid data.
func (r *ReminderLogEntry) Validate() error {
	if r.TaskID == uuid.Nil {
		return ErrEmptyReminderTaskID
	}
	if r.UserID == uuid.Nil {
		return ErrEmptyReminderUserID
	}
	if r.RemindedOn.IsZero() {
		return ErrEmptyRemindedOn
	}
	return nil
}

// ReminderCandidateTask is a task that qualifies for a due-date reminder,
// joined with its assignee. It is read-only to the engine.
type ReminderCandidateTask struct {
	TaskID             uuid.UUID  `json:"task_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	DueDate            time.Time  `json:"due_date"`
	Priority           string     `json:"priority,omitempty"`
	Status             string     `json:"status"`
	AssigneeID         uuid.UUID  `json:"assignee_id"`
	AssigneeEmail      string     `json:"assignee_email"`
	AssigneeName       string     `json:"assignee_name,omitempty"`
	EmailNotifications bool       `json:"email_notifications"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// DisplayName returns the assignee's name, or the local part of the assignee's
// email when no name is set.
func (t *ReminderCandidateTask) DisplayName() string {
	if name := strings.TrimSpace(t.AssigneeName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(t.AssigneeEmail, "@")
	return local
}

// DaysUntilDue returns the number of calendar days between today and the due
// date. Both are compared as calendar dates.
func (t *ReminderCandidateTask) DaysUntilDue(today time.Time) int {
	due := Day(t.DueDate, time.UTC)
	return int(due.Sub(Day(today, time.UTC)).Hours() / 24)
}

// Day returns midnight UTC of the calendar date that t falls on in loc.
// It is the canonical representation of a reminder day.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

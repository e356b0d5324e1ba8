package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on March 2 is still March 1 in New York
	ts := time.Date(2025, 3, 2, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Day(ts, ny))
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Day(ts, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Day(ts, nil))
}

func TestNewReminderLogEntry(t *testing.T) {
	t.Parallel()

	taskID, userID := uuid.New(), uuid.New()
	entry, err := NewReminderLogEntry(taskID, userID, time.Date(2025, 3, 2, 15, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), entry.RemindedOn)

	_, err = NewReminderLogEntry(uuid.Nil, userID, time.Now())
	assert.ErrorIs(t, err, ErrEmptyReminderTaskID)
	_, err = NewReminderLogEntry(taskID, uuid.Nil, time.Now())
	assert.ErrorIs(t, err, ErrEmptyReminderUserID)
	_, err = NewReminderLogEntry(taskID, userID, time.Time{})
	assert.ErrorIs(t, err, ErrEmptyRemindedOn)
}

func TestReminderCandidateTask_DisplayName(t *testing.T) {
	t.Parallel()

	task := &ReminderCandidateTask{AssigneeEmail: "grace.hopper@example.com"}
	assert.Equal(t, "grace.hopper", task.DisplayName())

	task.AssigneeName = "  Grace Hopper "
	assert.Equal(t, "Grace Hopper", task.DisplayName())
}

func TestReminderCandidateTask_DaysUntilDue(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &ReminderCandidateTask{DueDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 2, task.DaysUntilDue(today))

	task.DueDate = today
	assert.Equal(t, 0, task.DaysUntilDue(today))
}

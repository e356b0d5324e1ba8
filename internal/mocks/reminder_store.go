package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/store"
)

// MockReminderStore implements store.ReminderStore for testing. Without
// function overrides it applies the candidate predicate to Tasks and keeps
// an in-memory reminder log.
type MockReminderStore struct {
	FindCandidatesFn func(ctx context.Context, today time.Time, lookaheadDays int) ([]*domain.ReminderCandidateTask, error)
	LogReminderFn    func(ctx context.Context, entry *domain.ReminderLogEntry) error

	// Tasks is the task dataset the default FindCandidates filters.
	Tasks []*domain.ReminderCandidateTask

	mu  sync.Mutex
	log map[reminderKey]bool
}

type reminderKey struct {
	taskID uuid.UUID
	userID uuid.UUID
	day    time.Time
}

// NewMockReminderStore creates a store over tasks.
func NewMockReminderStore(tasks ...*domain.ReminderCandidateTask) *MockReminderStore {
	return &MockReminderStore{
		Tasks: tasks,
		log:   make(map[reminderKey]bool),
	}
}

// Ensure MockReminderStore implements store.ReminderStore interface
var _ store.ReminderStore = (*MockReminderStore)(nil)

// FindCandidates implements the ReminderStore interface
func (m *MockReminderStore) FindCandidates(
	ctx context.Context,
	today time.Time,
	lookaheadDays int,
) ([]*domain.ReminderCandidateTask, error) {
	if m.FindCandidatesFn != nil {
		return m.FindCandidatesFn(ctx, today, lookaheadDays)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	day := domain.Day(today, time.UTC)
	var out []*domain.ReminderCandidateTask
	for _, t := range m.Tasks {
		if t.Status == "completed" || t.CompletedAt != nil || t.DueDate.IsZero() {
			continue
		}
		if t.AssigneeEmail == "" || !t.EmailNotifications {
			continue
		}
		days := t.DaysUntilDue(day)
		if days < 0 || days > lookaheadDays {
			continue
		}
		if m.log[reminderKey{t.TaskID, t.AssigneeID, day}] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// LogReminder implements the ReminderStore interface
func (m *MockReminderStore) LogReminder(ctx context.Context, entry *domain.ReminderLogEntry) error {
	if m.LogReminderFn != nil {
		return m.LogReminderFn(ctx, entry)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.log[reminderKey{entry.TaskID, entry.UserID, domain.Day(entry.RemindedOn, time.UTC)}] = true
	return nil
}

// LogSize returns the number of distinct reminder log entries.
func (m *MockReminderStore) LogSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log)
}

// Logged reports whether (taskID, userID, day) has a log entry.
func (m *MockReminderStore) Logged(taskID, userID uuid.UUID, day time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log[reminderKey{taskID, userID, domain.Day(day, time.UTC)}]
}

package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/store"
)

// MockEmailQueueStore implements store.EmailQueueStore for testing. Without
// function overrides it behaves like the real queue over an in-memory table,
// including the backoff filter and the terminal-state guard.
type MockEmailQueueStore struct {
	// Function fields for customizable behavior
	EnqueueFn       func(ctx context.Context, email *domain.QueuedEmail) error
	FetchDueBatchFn func(ctx context.Context, limit int, now time.Time) ([]*domain.QueuedEmail, error)
	RecordSuccessFn func(ctx context.Context, id uuid.UUID, now time.Time) error
	RecordFailureFn func(ctx context.Context, id uuid.UUID, message string, now time.Time) (domain.EmailStatus, error)
	StatsFn         func(ctx context.Context, window time.Duration, now time.Time) (*domain.QueueStats, error)

	// Database is returned by DB; tests pass a sqlmock connection here so
	// store.RunInTransaction can begin and commit.
	Database *sql.DB

	mu      sync.Mutex
	emails  map[uuid.UUID]*domain.QueuedEmail
	txCount int
}

// NewMockEmailQueueStore creates an empty queue backed by db.
func NewMockEmailQueueStore(db *sql.DB) *MockEmailQueueStore {
	return &MockEmailQueueStore{
		Database: db,
		emails:   make(map[uuid.UUID]*domain.QueuedEmail),
	}
}

// Ensure MockEmailQueueStore implements store.EmailQueueStore interface
var _ store.EmailQueueStore = (*MockEmailQueueStore)(nil)

// Enqueue implements the EmailQueueStore interface
func (m *MockEmailQueueStore) Enqueue(ctx context.Context, email *domain.QueuedEmail) error {
	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, email)
	}
	if err := email.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.emails[email.ID]; exists {
		return store.ErrDuplicate
	}
	stored := *email
	m.emails[email.ID] = &stored
	return nil
}

// FetchDueBatch implements the EmailQueueStore interface
func (m *MockEmailQueueStore) FetchDueBatch(ctx context.Context, limit int, now time.Time) ([]*domain.QueuedEmail, error) {
	if m.FetchDueBatchFn != nil {
		return m.FetchDueBatchFn(ctx, limit, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*domain.QueuedEmail
	for _, e := range m.emails {
		if e.IsDue(now) {
			copied := *e
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// RecordSuccess implements the EmailQueueStore interface
func (m *MockEmailQueueStore) RecordSuccess(ctx context.Context, id uuid.UUID, now time.Time) error {
	if m.RecordSuccessFn != nil {
		return m.RecordSuccessFn(ctx, id, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok || e.IsTerminal() {
		return store.ErrQueuedEmailNotFound
	}
	return e.MarkSent(now)
}

// RecordFailure implements the EmailQueueStore interface
func (m *MockEmailQueueStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	message string,
	now time.Time,
) (domain.EmailStatus, error) {
	if m.RecordFailureFn != nil {
		return m.RecordFailureFn(ctx, id, message, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok || e.IsTerminal() {
		return "", store.ErrQueuedEmailNotFound
	}
	return e.MarkFailedAttempt(message, now)
}

// Stats implements the EmailQueueStore interface
func (m *MockEmailQueueStore) Stats(ctx context.Context, window time.Duration, now time.Time) (*domain.QueueStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx, window, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var stats domain.QueueStats
	for _, e := range m.emails {
		if e.CreatedAt.Before(now.Add(-window)) {
			continue
		}
		switch e.Status {
		case domain.EmailStatusPending:
			stats.Pending++
			if e.Attempts > 0 {
				stats.Retrying++
			}
		case domain.EmailStatusSent:
			stats.Sent++
		case domain.EmailStatusFailed:
			stats.Failed++
		}
	}
	return &stats, nil
}

// WithTx implements the EmailQueueStore interface. The mock shares its table
// across transactions and counts how many were opened.
func (m *MockEmailQueueStore) WithTx(*sql.Tx) store.EmailQueueStore {
	m.mu.Lock()
	m.txCount++
	m.mu.Unlock()
	return m
}

// DB implements the EmailQueueStore interface
func (m *MockEmailQueueStore) DB() *sql.DB {
	return m.Database
}

// Get returns a copy of the stored email with id.
func (m *MockEmailQueueStore) Get(id uuid.UUID) (domain.QueuedEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok {
		return domain.QueuedEmail{}, false
	}
	return *e, true
}

// All returns copies of every stored email, oldest first.
func (m *MockEmailQueueStore) All() []domain.QueuedEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.QueuedEmail, 0, len(m.emails))
	for _, e := range m.emails {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// TxCount returns how many times WithTx was called.
func (m *MockEmailQueueStore) TxCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount
}

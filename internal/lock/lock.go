// Package lock defines the named mutual-exclusion capability that serializes
// the queue processor and the reminder generator across processes.
package lock

import (
	"context"
	"errors"
	"sync"
)

// Names of the locks held by the engine.
const (
	QueueProcessing    = "email-queue-processing"
	ReminderGeneration = "reminder-generation"
)

// ErrNotHeld is returned when releasing a lease that is no longer held.
var ErrNotHeld = errors.New("lock not held")

// Lease is a held lock. Release must be called exactly once.
type Lease interface {
	Name() string
	Release(ctx context.Context) error
}

// Locker acquires named locks without blocking. A false result with a nil
// error means another holder currently owns the lock.
type Locker interface {
	TryAcquire(ctx context.Context, name string) (Lease, bool, error)
}

// MemoryLocker is an in-process Locker for single-instance deployments and tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]uint64
	next uint64
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]uint64)}
}

// Ensure MemoryLocker implements Locker interface
var _ Locker = (*MemoryLocker)(nil)

// TryAcquire implements Locker.TryAcquire
func (m *MemoryLocker) TryAcquire(ctx context.Context, name string) (Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.held[name]; taken {
		return nil, false, nil
	}
	m.next++
	m.held[name] = m.next
	return &memoryLease{locker: m, name: name, token: m.next}, true, nil
}

// Held reports whether name is currently held.
func (m *MemoryLocker) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[name]
	return ok
}

type memoryLease struct {
	locker *MemoryLocker
	name   string
	token  uint64
}

func (l *memoryLease) Name() string { return l.name }

func (l *memoryLease) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	if l.locker.held[l.name] != l.token {
		return ErrNotHeld
	}
	delete(l.locker.held, l.name)
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/boardnotify/internal/lock"
)

// AdvisoryLocker implements lock.Locker with PostgreSQL session-level advisory
// locks. Each held lock pins one pooled connection until released, so a
// crashed holder frees the lock when its connection drops.
type AdvisoryLocker struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAdvisoryLocker creates an AdvisoryLocker on db.
func NewAdvisoryLocker(db *sql.DB, logger *slog.Logger) *AdvisoryLocker {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisoryLocker{
		db:     db,
		logger: logger.With(slog.String("component", "advisory_locker")),
	}
}

// Ensure AdvisoryLocker implements lock.Locker interface
var _ lock.Locker = (*AdvisoryLocker)(nil)

// TryAcquire implements lock.Locker.TryAcquire
func (l *AdvisoryLocker) TryAcquire(ctx context.Context, name string) (lock.Lease, bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection for lock %q: %w", name, MapError(err))
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&acquired)
	if err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock %q: %w", name, MapError(err))
	}

	if !acquired {
		_ = conn.Close()
		l.logger.Debug("advisory lock held elsewhere", slog.String("lock", name))
		return nil, false, nil
	}

	return &advisoryLease{name: name, conn: conn, logger: l.logger}, true, nil
}

type advisoryLease struct {
	name   string
	conn   *sql.Conn
	logger *slog.Logger

	once sync.Once
	err  error
}

func (a *advisoryLease) Name() string { return a.name }

// Release unlocks and returns the pinned connection to the pool. If the unlock
// cannot be confirmed the connection is discarded instead, which ends the
// session and with it the lock.
func (a *advisoryLease) Release(ctx context.Context) error {
	released := false
	a.once.Do(func() {
		released = true
		a.err = a.release(ctx)
	})
	if !released {
		return lock.ErrNotHeld
	}
	return a.err
}

func (a *advisoryLease) release(ctx context.Context) error {
	var unlocked bool
	err := a.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, a.name).Scan(&unlocked)
	if err != nil || !unlocked {
		a.logger.Warn("advisory unlock not confirmed, discarding connection",
			slog.String("lock", a.name),
			slog.Bool("unlocked", unlocked),
			slog.Any("error", err))
		_ = a.conn.Raw(func(any) error { return driver.ErrBadConn })
		_ = a.conn.Close()
		if err != nil {
			return fmt.Errorf("advisory unlock %q: %w", a.name, MapError(err))
		}
		return fmt.Errorf("advisory unlock %q: %w", a.name, lock.ErrNotHeld)
	}
	return a.conn.Close()
}

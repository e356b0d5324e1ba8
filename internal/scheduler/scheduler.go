// Package scheduler runs the queue processor and the reminder generator on
// their configured schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/boardnotify/internal/redact"
	"github.com/robfig/cron/v3"
)

// Names of the scheduled jobs.
const (
	JobQueueProcessor    = "queue-processor"
	JobReminderGenerator = "reminder-generator"
)

// RunFunc is one scheduled invocation. Errors are logged; the next tick is
// the retry.
type RunFunc func(ctx context.Context) error

// JobStatus describes a registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next,omitempty"`
}

// Status describes the scheduler.
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	entries map[string]registration
}

type registration struct {
	id       cron.EntryID
	schedule Schedule
}

// New creates a Scheduler whose calendar schedules are evaluated in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With(slog.String("component", "scheduler"))
	cronLog := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]registration),
	}
}

// Register adds a job. An invalid expression is logged and returned, and the
// job is left unregistered; other jobs are unaffected.
func (s *Scheduler) Register(name, expr string, run RunFunc) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		s.logger.Error("invalid schedule, job not registered",
			slog.String("job", name),
			slog.String("schedule", expr),
			slog.String("error", err.Error()))
		return fmt.Errorf("register %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("register %s: job already registered", name)
	}

	id := s.cron.Schedule(schedule.schedule, cron.FuncJob(func() { s.run(name, run) }))
	s.entries[name] = registration{id: id, schedule: schedule}

	s.logger.Info("job registered",
		slog.String("job", name),
		slog.String("schedule", schedule.String()),
		slog.String("kind", schedule.Kind.String()))
	return nil
}

// run invokes one job and logs its outcome.
func (s *Scheduler) run(name string, run RunFunc) {
	log := s.logger.With(slog.String("job", name))
	start := time.Now()

	if err := run(s.ctx); err != nil {
		log.Error("scheduled job failed",
			slog.String("error", redact.Error(err)),
			slog.Duration("duration", time.Since(start)))
		return
	}
	log.Debug("scheduled job finished", slog.Duration("duration", time.Since(start)))
}

// Registered reports whether name has a schedule.
func (s *Scheduler) Registered(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.entries)))
}

// Stop halts scheduling, cancels the context passed to running jobs and
// waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()
	if !wasRunning {
		return nil
	}

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Status reports the registered jobs and their next activation.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.running, Jobs: make([]JobStatus, 0, len(s.entries))}
	for name, reg := range s.entries {
		job := JobStatus{Name: name, Schedule: reg.schedule.String()}
		if s.running {
			job.Next = s.cron.Entry(reg.id).Next
		}
		status.Jobs = append(status.Jobs, job)
	}
	sort.Slice(status.Jobs, func(i, j int) bool { return status.Jobs[i].Name < status.Jobs[j].Name })
	return status
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}

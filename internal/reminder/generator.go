// Package reminder finds tasks that are due soon and sends each assignee at
// most one successful reminder per task per calendar day.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/lock"
	"github.com/phrazzld/boardnotify/internal/mail"
	"github.com/phrazzld/boardnotify/internal/notify"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/redact"
	"github.com/phrazzld/boardnotify/internal/render"
	"github.com/phrazzld/boardnotify/internal/store"
)

// DefaultLookaheadDays is how many days past today a due date may be.
const DefaultLookaheadDays = 2

// DeliveryMode selects how reminders reach the assignee.
type DeliveryMode string

const (
	// DeliveryDirect renders and sends each reminder immediately.
	DeliveryDirect DeliveryMode = "direct"
	// DeliveryQueue writes each reminder to the durable email queue; the
	// queue processor sends it later.
	DeliveryQueue DeliveryMode = "queue"
)

// ErrInvalidDeliveryMode is returned for an unknown delivery mode.
var ErrInvalidDeliveryMode = errors.New("invalid delivery mode")

// ParseDeliveryMode converts a configuration value into a DeliveryMode.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch DeliveryMode(s) {
	case DeliveryDirect, DeliveryQueue:
		return DeliveryMode(s), nil
	case "":
		return DeliveryDirect, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDeliveryMode, s)
}

// Config holds configuration for the reminder generator
type Config struct {
	LookaheadDays int
	DryRun        bool
	Delivery      DeliveryMode
	// Location decides which calendar day "today" is.
	Location *time.Location
	// SendTimeout bounds each direct transport call; zero disables the bound
	SendTimeout time.Duration
}

// Deps are the collaborators of a Generator. Transport and Renderer are
// required for direct delivery, Enqueuer for queue delivery.
type Deps struct {
	Store     store.ReminderStore
	Locker    lock.Locker
	Transport mail.Transport
	Renderer  *render.Renderer
	Enqueuer  *notify.Enqueuer
	Builder   notify.Builder
}

// RecipientResult is the outcome for one assignee.
type RecipientResult struct {
	Email     string `json:"email"`
	TaskCount int    `json:"taskCount"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// Summary reports one reminder run. Sent and Failed count recipients, except
// when the transport is unreachable, where Failed is the number of tasks.
type Summary struct {
	Skipped       bool              `json:"skipped"`
	DryRun        bool              `json:"dryRun"`
	Sent          int               `json:"sent"`
	Failed        int               `json:"failed"`
	TotalTasks    int               `json:"totalTasks"`
	LookaheadDays int               `json:"lookaheadDays"`
	Message       string            `json:"message,omitempty"`
	Results       []RecipientResult `json:"results"`
}

// Generator sends due-date reminders.
type Generator struct {
	deps   Deps
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator, checking that the collaborators needed by
// the configured delivery mode are present.
func NewGenerator(deps Deps, config Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Store == nil || deps.Locker == nil {
		return nil, errors.New("reminder store and locker are required")
	}
	if config.Delivery == "" {
		config.Delivery = DeliveryDirect
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.LookaheadDays < 0 {
		return nil, fmt.Errorf("lookahead days must not be negative, got %d", config.LookaheadDays)
	}

	switch config.Delivery {
	case DeliveryDirect:
		if deps.Transport == nil || deps.Renderer == nil {
			return nil, errors.New("direct delivery requires a transport and a renderer")
		}
	case DeliveryQueue:
		if deps.Enqueuer == nil {
			return nil, errors.New("queue delivery requires an enqueuer")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeliveryMode, config.Delivery)
	}

	return &Generator{
		deps:   deps,
		config: config,
		logger: logger.With(slog.String("component", "reminder_generator")),
		now:    time.Now,
	}, nil
}

// SetClock replaces the generator's time source.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Today returns the current reminder day in the configured time zone.
func (g *Generator) Today() time.Time {
	return domain.Day(g.now(), g.config.Location)
}

// FindTasksNeedingReminders returns the tasks whose assignees should be
// reminded today.
func (g *Generator) FindTasksNeedingReminders(
	ctx context.Context,
	lookaheadDays int,
) ([]*domain.ReminderCandidateTask, error) {
	return g.findCandidates(ctx, g.Today(), lookaheadDays)
}

func (g *Generator) findCandidates(
	ctx context.Context,
	today time.Time,
	lookaheadDays int,
) ([]*domain.ReminderCandidateTask, error) {
	tasks, err := g.deps.Store.FindCandidates(ctx, today, lookaheadDays)
	if err != nil {
		return nil, fmt.Errorf("find reminder candidates: %w", err)
	}
	return tasks, nil
}

// SendReminderEmails runs one reminder pass. It returns a skipped summary
// when another process is already generating reminders.
func (g *Generator) SendReminderEmails(ctx context.Context) (*Summary, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)
	summary := &Summary{
		DryRun:        g.config.DryRun,
		LookaheadDays: g.config.LookaheadDays,
		Results:       []RecipientResult{},
	}

	if !g.config.DryRun {
		lease, acquired, err := g.deps.Locker.TryAcquire(ctx, lock.ReminderGeneration)
		if err != nil {
			return nil, fmt.Errorf("acquire reminder lock: %w", err)
		}
		if !acquired {
			log.Debug("reminder lock held elsewhere, skipping run")
			summary.Skipped = true
			summary.Message = "Reminder generation already running"
			return summary, nil
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release reminder lock", slog.String("error", redact.Error(err)))
			}
		}()
	}

	today := g.Today()
	tasks, err := g.findCandidates(ctx, today, g.config.LookaheadDays)
	if err != nil {
		log.Error("reminder run failed", slog.String("error", redact.Error(err)))
		return nil, err
	}
	summary.TotalTasks = len(tasks)

	if len(tasks) == 0 {
		summary.Message = "No tasks need reminders"
		log.Debug(summary.Message)
		return summary, nil
	}

	groups := groupByAssignee(tasks)

	if g.config.DryRun {
		for _, grp := range groups {
			log.Info("dry run: would send reminder",
				slog.String("recipient", redact.Recipient(grp.email)),
				slog.Int("task_count", len(grp.tasks)))
			summary.Results = append(summary.Results, RecipientResult{
				Email:     grp.email,
				TaskCount: len(grp.tasks),
			})
		}
		summary.Message = fmt.Sprintf("Dry run: %d reminder emails would be sent", len(groups))
		return summary, nil
	}

	if g.config.Delivery == DeliveryDirect {
		if err := g.deps.Transport.Verify(ctx); err != nil {
			log.Error("email transport unreachable, no reminders sent",
				slog.String("error", redact.Error(err)))
			summary.Failed = len(tasks)
			summary.Message = "Email transport unreachable"
			return summary, nil
		}
	}

	for _, grp := range groups {
		result := g.remind(ctx, today, grp)
		if result.Success {
			summary.Sent++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Message = fmt.Sprintf("Sent %d reminder emails, %d failed", summary.Sent, summary.Failed)
	attrs := []any{
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Int("total_tasks", summary.TotalTasks),
		slog.String("delivery", string(g.config.Delivery)),
	}
	if summary.Failed > 0 {
		log.Warn("reminder run finished with failures", attrs...)
	} else {
		log.Info("reminder run finished", attrs...)
	}
	return summary, nil
}

type group struct {
	email string
	tasks []*domain.ReminderCandidateTask
}

// groupByAssignee groups tasks by assignee email in first-seen order.
func groupByAssignee(tasks []*domain.ReminderCandidateTask) []*group {
	var groups []*group
	index := make(map[string]*group)
	for _, t := range tasks {
		grp, ok := index[t.AssigneeEmail]
		if !ok {
			grp = &group{email: t.AssigneeEmail}
			index[t.AssigneeEmail] = grp
			groups = append(groups, grp)
		}
		grp.tasks = append(grp.tasks, t)
	}
	return groups
}

// remind delivers one recipient's reminder and, on success, logs every task
// in the group for today.
func (g *Generator) remind(ctx context.Context, today time.Time, grp *group) RecipientResult {
	log := logger.FromContextOrDefault(ctx, g.logger).With(
		slog.String("recipient", redact.Recipient(grp.email)),
		slog.Int("task_count", len(grp.tasks)),
	)
	result := RecipientResult{Email: grp.email, TaskCount: len(grp.tasks)}

	req := g.buildRequest(today, grp)
	messageID, err := g.deliver(ctx, req)
	if err != nil {
		result.Error = redact.Error(err)
		log.Warn("reminder delivery failed", slog.String("error", result.Error))
		return result
	}
	result.Success = true
	result.MessageID = messageID

	for _, t := range grp.tasks {
		entry, err := domain.NewReminderLogEntry(t.TaskID, t.AssigneeID, today)
		if err == nil {
			err = g.deps.Store.LogReminder(ctx, entry)
		}
		if err != nil {
			log.Error("failed to log reminder, it may be sent again today",
				slog.String("task_id", t.TaskID.String()),
				slog.String("error", redact.Error(err)))
		}
	}

	log.Debug("reminder delivered", slog.String("message_id", messageID))
	return result
}

func (g *Generator) buildRequest(today time.Time, grp *group) notify.EmailRequest {
	first := grp.tasks[0]
	name := first.DisplayName()

	if len(grp.tasks) == 1 {
		return g.deps.Builder.TaskReminder(notify.TaskReminderParams{
			To:       grp.email,
			UserName: name,
			Task:     reminderTask(first, today),
		})
	}

	tasks := make([]notify.ReminderTask, 0, len(grp.tasks))
	for _, t := range grp.tasks {
		tasks = append(tasks, reminderTask(t, today))
	}
	return g.deps.Builder.MultiTaskReminder(notify.MultiTaskReminderParams{
		To:       grp.email,
		UserName: name,
		Tasks:    tasks,
	})
}

func reminderTask(t *domain.ReminderCandidateTask, today time.Time) notify.ReminderTask {
	return notify.ReminderTask{
		ID:           t.TaskID,
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      t.DueDate,
		DaysUntilDue: t.DaysUntilDue(today),
		Priority:     t.Priority,
	}
}

// deliver sends or enqueues req and returns a message or queue ID.
func (g *Generator) deliver(ctx context.Context, req notify.EmailRequest) (string, error) {
	if g.config.Delivery == DeliveryQueue {
		id, err := g.deps.Enqueuer.QueueEmail(ctx, req)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}

	name, err := render.ParseTemplateName(req.Template)
	if err != nil {
		return "", err
	}
	out, err := g.deps.Renderer.Render(name, req.TemplateData)
	if err != nil {
		return "", err
	}
	if g.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.SendTimeout)
		defer cancel()
	}

	res, err := g.deps.Transport.Send(ctx, mail.Message{
		To:      req.To,
		Subject: req.Subject,
		HTML:    out.HTML,
		Text:    out.Text,
	})
	if err != nil {
		return "", err
	}
	if res == nil || !res.Success {
		msg := "unknown error"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return "", fmt.Errorf("send failed: %s", msg)
	}
	return res.MessageID, nil
}

// Package notify is the enqueue API other parts of the application use to
// schedule notification emails on the durable queue.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/boardnotify/internal/domain"
	"github.com/phrazzld/boardnotify/internal/platform/logger"
	"github.com/phrazzld/boardnotify/internal/render"
	"github.com/phrazzld/boardnotify/internal/store"
)

// ErrInvalidRequest is returned when an email request fails validation.
var ErrInvalidRequest = errors.New("invalid email request")

// EmailRequest is a request to queue one email.
type EmailRequest struct {
	To           string         `json:"to"                    validate:"required,email"`
	Subject      string         `json:"subject"               validate:"required,max=998"`
	Template     string         `json:"template"              validate:"required"`
	TemplateData map[string]any `json:"templateData"`
	MaxAttempts  int            `json:"maxAttempts,omitempty" validate:"omitempty,min=1,max=10"`
}

// Enqueuer writes email requests to the durable queue.
type Enqueuer struct {
	store       store.EmailQueueStore
	renderer    *render.Renderer
	validate    *validator.Validate
	builder     Builder
	maxAttempts int
	logger      *slog.Logger
}

// NewEnqueuer creates an Enqueuer. maxAttempts is applied to requests that do
// not set their own ceiling.
func NewEnqueuer(
	queue store.EmailQueueStore,
	renderer *render.Renderer,
	builder Builder,
	maxAttempts int,
	logger *slog.Logger,
) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	return &Enqueuer{
		store:       queue,
		renderer:    renderer,
		validate:    validator.New(),
		builder:     builder,
		maxAttempts: maxAttempts,
		logger:      logger.With(slog.String("component", "enqueuer")),
	}
}

// QueueEmail validates req against its template's declared fields and stores
// it as a pending email. It returns the new email's ID.
func (e *Enqueuer) QueueEmail(ctx context.Context, req EmailRequest) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if err := e.validate.Struct(req); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	name, err := render.ParseTemplateName(req.Template)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := e.renderer.Validate(name, req.TemplateData); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = e.maxAttempts
	}

	email, err := domain.NewQueuedEmail(req.To, req.Subject, string(name), req.TemplateData, maxAttempts)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := e.store.Enqueue(ctx, email); err != nil {
		log.Error("failed to queue email",
			slog.String("template", string(name)),
			slog.String("error", err.Error()))
		return uuid.Nil, fmt.Errorf("queue email: %w", err)
	}

	log.Info("email queued",
		slog.String("email_id", email.ID.String()),
		slog.String("template", string(name)),
		slog.Int("max_attempts", maxAttempts))
	return email.ID, nil
}

// QueueTaskReminder queues a single-task due-date reminder.
func (e *Enqueuer) QueueTaskReminder(ctx context.Context, p TaskReminderParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.TaskReminder(p))
}

// QueueMultiTaskReminder queues an aggregated reminder.
func (e *Enqueuer) QueueMultiTaskReminder(ctx context.Context, p MultiTaskReminderParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.MultiTaskReminder(p))
}

// QueueTaskAssigned queues an assignment notice.
func (e *Enqueuer) QueueTaskAssigned(ctx context.Context, p TaskAssignedParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.TaskAssigned(p))
}

// QueueWorkspaceInvite queues a workspace invitation.
func (e *Enqueuer) QueueWorkspaceInvite(ctx context.Context, p WorkspaceInviteParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.WorkspaceInvite(p))
}

// QueueWelcome queues the welcome email.
func (e *Enqueuer) QueueWelcome(ctx context.Context, p WelcomeParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.Welcome(p))
}

// QueueEmailVerification queues an address verification email.
func (e *Enqueuer) QueueEmailVerification(ctx context.Context, p EmailVerificationParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.EmailVerification(p))
}

// QueuePasswordReset queues a password reset email.
func (e *Enqueuer) QueuePasswordReset(ctx context.Context, p PasswordResetParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.PasswordReset(p))
}

// QueueTrialEnding queues a trial expiry warning.
func (e *Enqueuer) QueueTrialEnding(ctx context.Context, p TrialEndingParams) (uuid.UUID, error) {
	return e.QueueEmail(ctx, e.builder.TrialEnding(p))
}

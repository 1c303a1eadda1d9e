package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/events"
)

// TaskFactory creates a task for a finished session.
type TaskFactory interface {
	NewTask(sessionID uuid.UUID) (Task, error)
}

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// ScreeningCompletedHandler turns screening_completed events into tasks.
type ScreeningCompletedHandler struct {
	factory TaskFactory
	runner  Submitter
	logger  *slog.Logger
}

var _ events.EventHandler = (*ScreeningCompletedHandler)(nil)

// NewScreeningCompletedHandler creates a handler that submits the tasks made
// by factory to runner.
func NewScreeningCompletedHandler(
	factory TaskFactory,
	runner Submitter,
	logger *slog.Logger,
) *ScreeningCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreeningCompletedHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With(slog.String("component", "screening_completed_handler")),
	}
}

// HandleEvent implements events.EventHandler. Events of other types are
// ignored.
func (h *ScreeningCompletedHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeScreeningCompleted {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.ScreeningCompleted
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.NewTask(payload.SessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task",
			"error", err,
			"session_id", payload.SessionID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"session_id", payload.SessionID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "task created and submitted successfully",
		"task_id", task.ID(),
		"session_id", payload.SessionID,
		"outcome_status", payload.OutcomeStatus,
		"event_id", event.ID)
	return nil
}

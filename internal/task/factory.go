package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/generation"
)

// EducationArticleTaskFactory creates education article tasks with their
// dependencies injected and rebuilds them from stored records.
type EducationArticleTaskFactory struct {
	sessions  SessionReader
	articles  ArticleWriter
	generator generation.ArticleGenerator
	logger    *slog.Logger
}

var _ Decoder = (*EducationArticleTaskFactory)(nil)

// NewEducationArticleTaskFactory creates a factory.
func NewEducationArticleTaskFactory(
	sessions SessionReader,
	articles ArticleWriter,
	generator generation.ArticleGenerator,
	logger *slog.Logger,
) (*EducationArticleTaskFactory, error) {
	if sessions == nil {
		return nil, ErrNilSessionReader
	}
	if articles == nil {
		return nil, ErrNilArticleWriter
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EducationArticleTaskFactory{
		sessions:  sessions,
		articles:  articles,
		generator: generator,
		logger:    logger,
	}, nil
}

// NewTask creates a pending task for sessionID.
func (f *EducationArticleTaskFactory) NewTask(sessionID uuid.UUID) (Task, error) {
	return f.build(uuid.New(), sessionID, TaskStatusPending)
}

// Decode implements Decoder.
func (f *EducationArticleTaskFactory) Decode(rec Record) (Task, error) {
	if rec.Type != TaskTypeEducationArticle {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}
	var p educationArticlePayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid education article payload: %w", err)
	}
	status := rec.Status
	if status == "" {
		status = TaskStatusPending
	}
	return f.build(rec.ID, p.SessionID, status)
}

func (f *EducationArticleTaskFactory) build(id, sessionID uuid.UUID, status TaskStatus) (*EducationArticleTask, error) {
	if sessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}
	return &EducationArticleTask{
		id:        id,
		sessionID: sessionID,
		sessions:  f.sessions,
		articles:  f.articles,
		generator: f.generator,
		logger: f.logger.With(
			"task_id", id,
			"task_type", TaskTypeEducationArticle,
			"session_id", sessionID),
		status: status,
	}, nil
}

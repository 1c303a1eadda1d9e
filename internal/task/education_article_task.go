package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/generation"
)

// Common errors
var (
	ErrNilSessionReader = errors.New("session reader cannot be nil")
	ErrNilArticleWriter = errors.New("article writer cannot be nil")
	ErrNilGenerator     = errors.New("generator cannot be nil")
	ErrEmptySessionID   = errors.New("session ID cannot be empty")
	ErrUnknownTaskType  = errors.New("unknown task type")
	ErrSessionNotDone   = errors.New("screening session has no outcome yet")
)

// SessionReader loads a stored screening session.
type SessionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error)
}

// ArticleWriter stores generated articles.
type ArticleWriter interface {
	Create(ctx context.Context, article *domain.EducationArticle) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.EducationArticle, error)
}

// educationArticlePayload is the serialized form stored with the task.
type educationArticlePayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

// EducationArticleTask writes one caregiver article for a finished screening.
// It is idempotent: a session that already has an article is left alone.
type EducationArticleTask struct {
	id        uuid.UUID
	sessionID uuid.UUID
	sessions  SessionReader
	articles  ArticleWriter
	generator generation.ArticleGenerator
	logger    *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

var _ Task = (*EducationArticleTask)(nil)

// ID returns the task's unique identifier
func (t *EducationArticleTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *EducationArticleTask) Type() string { return TaskTypeEducationArticle }

// SessionID returns the session the article is written for.
func (t *EducationArticleTask) SessionID() uuid.UUID { return t.sessionID }

// Payload returns the task data as JSON
func (t *EducationArticleTask) Payload() []byte {
	data, err := json.Marshal(educationArticlePayload{SessionID: t.sessionID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte("{}")
	}
	return data
}

// Status returns the current task status
func (t *EducationArticleTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *EducationArticleTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute loads the session, asks the generator for an article about its
// outcome and stores the result.
func (t *EducationArticleTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)
	t.logger.InfoContext(ctx, "starting education article task")

	if err := t.execute(ctx); err != nil {
		t.setStatus(TaskStatusFailed)
		return err
	}
	t.setStatus(TaskStatusCompleted)
	return nil
}

func (t *EducationArticleTask) execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	existing, err := t.articles.ListBySession(ctx, t.sessionID)
	if err != nil {
		return fmt.Errorf("failed to list existing articles: %w", err)
	}
	if len(existing) > 0 {
		t.logger.InfoContext(ctx, "session already has an article, skipping",
			"article_count", len(existing))
		return nil
	}

	stored, err := t.sessions.GetByID(ctx, t.sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	var sess screening.Session
	if err := json.Unmarshal(stored.State, &sess); err != nil {
		return fmt.Errorf("failed to decode session state: %w", err)
	}

	req, err := ArticleRequestFor(t.sessionID, sess)
	if err != nil {
		return err
	}

	article, err := t.generator.GenerateArticle(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate article: %w", err)
	}

	if err := t.articles.Create(ctx, article); err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}

	t.logger.InfoContext(ctx, "education article stored",
		"article_id", article.ID,
		"topic", article.Topic)
	return nil
}

// Article topics used when no disease was identified.
const (
	TopicEmergencyReferral = "emergency_referral"
	TopicHealthyGrowth     = "healthy_growth"
)

// ArticleRequestFor builds the de-identified generator input for a finished
// screening. The topic is the diagnosed disease, then the emergency, then the
// main growth concern, and finally healthy growth.
func ArticleRequestFor(sessionID uuid.UUID, s screening.Session) (generation.ArticleRequest, error) {
	if s.Outcome == nil {
		return generation.ArticleRequest{}, ErrSessionNotDone
	}

	req := generation.ArticleRequest{
		SessionID:   sessionID,
		Outcome:     string(s.Outcome.Status),
		Explanation: s.Outcome.Explanation,
	}

	var concern *growth.Classification
	if s.Growth != nil {
		p := s.Growth.Profile
		req.AgeMonths = int(float64(p.AgeDays) / 30.4375)
		req.Sex = string(p.Sex)
		req.TemperatureC = p.TemperatureC
		if p.HeartRateBpm != nil {
			hr := float64(*p.HeartRateBpm)
			req.HeartRateBPM = &hr
		}
		req.Overall = string(s.Growth.Summary.Severity)
		concern = s.Growth.Summary.MainConcern
		for _, a := range s.Growth.Assessments {
			req.Indicators = append(req.Indicators, generation.IndicatorContext{
				Indicator: string(a.Indicator),
				ZScore:    a.ZScore,
				Category:  string(a.Classification.Category),
			})
		}
		for _, n := range s.Growth.Notes {
			req.ClinicalNotes = append(req.ClinicalNotes, n.Message)
		}
	}

	switch {
	case s.Outcome.TopDisease != nil && s.Outcome.Status == domain.OutcomeDiagnosed:
		req.Topic = s.Outcome.TopDisease.ID
		req.Disease = s.Outcome.TopDisease.Name
	case s.Outcome.Status == domain.OutcomeEmergency:
		req.Topic = TopicEmergencyReferral
		if s.Outcome.Emergency != nil {
			req.Disease = s.Outcome.Emergency.Reason
		}
	case concern != nil:
		req.Topic = string(concern.Category)
	default:
		req.Topic = TopicHealthyGrowth
	}

	return req, nil
}

// Package screening is the application service around the screening state
// machine. It persists sessions, scopes them to the operator who started
// them, serializes concurrent requests on one session with a row lock, and
// announces finished screenings so education content can be prepared.
package screening

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/events"
	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/mydudu/screening-api/internal/store"
)

// Paging limits for ListSessions.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Service defines the operator-facing screening operations.
type Service interface {
	// StartSession opens a new session for the child identified by childRef.
	// The identifier is pseudonymized before it is stored.
	StartSession(ctx context.Context, operatorID uuid.UUID, childRef string) (*SessionView, error)

	// RecordMeasurements evaluates growth and moves the session to red-flag
	// triage.
	RecordMeasurements(
		ctx context.Context,
		operatorID, sessionID uuid.UUID,
		profile domain.ChildProfile,
	) (*SessionView, error)

	// GetPrompt returns the question the session is waiting on.
	GetPrompt(ctx context.Context, operatorID, sessionID uuid.UUID) (*fsm.Prompt, error)

	// AnswerRedFlag answers the current danger sign. A non-empty flagID must
	// name that sign, otherwise ErrStalePrompt is returned and nothing changes.
	AnswerRedFlag(ctx context.Context, operatorID, sessionID uuid.UUID, flagID string, yes bool) (*SessionView, error)

	// AnswerQuestion answers a symptom question.
	AnswerQuestion(
		ctx context.Context,
		operatorID, sessionID uuid.UUID,
		symptomID string,
		value inference.AnswerValue,
	) (*SessionView, error)

	// GetSession returns the session with its current prompt, if any.
	GetSession(ctx context.Context, operatorID, sessionID uuid.UUID) (*SessionView, error)

	// GetHistory returns the ordered answer audit trail.
	GetHistory(ctx context.Context, operatorID, sessionID uuid.UUID) ([]fsm.HistoryEntry, error)

	// ResetSession discards all progress and returns the session to the
	// measurements phase.
	ResetSession(ctx context.Context, operatorID, sessionID uuid.UUID) (*SessionView, error)

	// ListSessions returns the operator's sessions, most recent first.
	ListSessions(ctx context.Context, operatorID uuid.UUID, limit, offset int) ([]*domain.ScreeningSession, error)

	// VerifySession replays the recorded answers and reports whether they
	// reproduce the stored state.
	VerifySession(ctx context.Context, operatorID, sessionID uuid.UUID) (*VerifyResult, error)

	// ListArticles returns the education articles generated for a session.
	ListArticles(ctx context.Context, operatorID, sessionID uuid.UUID) ([]*domain.EducationArticle, error)

	// EvaluateGrowth analyzes a profile without creating a session.
	EvaluateGrowth(ctx context.Context, profile domain.ChildProfile) (*growth.Report, error)

	// Knowledge summarizes the loaded knowledge base.
	Knowledge() knowledge.Summary

	// PurgeExpired deletes unfinished sessions that expired before now.
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionView is a stored session together with its decoded state and the
// prompt it is waiting on. Prompt is nil outside the triage and quiz phases.
type SessionView struct {
	Record *domain.ScreeningSession
	State  fsm.Session
	Prompt *fsm.Prompt
}

// VerifyResult is the outcome of replaying a session.
type VerifyResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Valid     bool      `json:"valid"`
	Steps     int       `json:"steps"`
	Reason    string    `json:"reason,omitempty"`
}

// Option configures the service.
type Option func(*serviceImpl)

// WithClock sets the clock used for expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		s.now = now
	}
}

// WithEventEmitter sets the emitter notified when a screening finishes.
func WithEventEmitter(e events.EventEmitter) Option {
	return func(s *serviceImpl) {
		if e != nil {
			s.emitter = e
		}
	}
}

type serviceImpl struct {
	db         *sql.DB
	sessions   store.SessionStore
	articles   store.ArticleStore
	bundle     *knowledge.Bundle
	controller *fsm.Controller
	childRefs  *childRefHasher
	ttl        time.Duration
	emitter    events.EventEmitter
	now        func() time.Time
	logger     *slog.Logger
}

var _ Service = (*serviceImpl)(nil)

// NewService creates the screening service. The inference engine is built
// from the bundle with the thresholds in cfg.
func NewService(
	db *sql.DB,
	sessions store.SessionStore,
	articles store.ArticleStore,
	bundle *knowledge.Bundle,
	cfg config.ScreeningConfig,
	privacy config.PrivacyConfig,
	logger *slog.Logger,
	opts ...Option,
) (Service, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if sessions == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "session store cannot be nil"}
	}
	if articles == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "article store cannot be nil"}
	}
	if bundle == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "knowledge bundle cannot be nil"}
	}
	if cfg.SessionTimeoutMinutes <= 0 {
		return nil, &ServiceError{Operation: "create_service", Message: "session timeout must be positive"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	hasher, err := newChildRefHasher(privacy.ChildIDKey)
	if err != nil {
		return nil, &ServiceError{Operation: "create_service", Message: "invalid privacy settings", Err: err}
	}

	engine, err := inference.NewEngine(bundle.KB, inference.NewParams(inference.ParamsConfig{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MinMargin:           cfg.MinMargin,
		ProbabilityFloor:    cfg.ProbabilityFloor,
		PlausibilityFloor:   cfg.PlausibilityFloor,
		MinInformationGain:  cfg.MinInformationGain,
		ExplanationLimit:    cfg.ExplanationLimit,
	}))
	if err != nil {
		return nil, &ServiceError{Operation: "create_service", Message: "invalid inference settings", Err: err}
	}

	s := &serviceImpl{
		db:        db,
		sessions:  sessions,
		articles:  articles,
		bundle:    bundle,
		childRefs: hasher,
		ttl:       cfg.SessionTimeout(),
		emitter:   events.NopEmitter{},
		now:       time.Now,
		logger:    logger.With(slog.String("component", "screening_service")),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.controller, err = fsm.NewController(engine, bundle.RedFlags, fsm.WithClock(s.now))
	if err != nil {
		return nil, &ServiceError{Operation: "create_service", Message: "invalid red flags", Err: err}
	}
	return s, nil
}

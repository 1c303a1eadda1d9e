package screening

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/events"
	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/mydudu/screening-api/internal/store"
)

// StartSession implements Service.
func (s *serviceImpl) StartSession(ctx context.Context, operatorID uuid.UUID, childRef string) (*SessionView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ref, err := s.childRefs.Hash(childRef)
	if err != nil {
		return nil, NewServiceError("start_session", "invalid child reference", err)
	}

	st := s.controller.New()
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, NewServiceError("start_session", "failed to encode state", err)
	}

	rec, err := domain.NewScreeningSession(operatorID, ref, raw, s.ttl)
	if err != nil {
		return nil, NewServiceError("start_session", "invalid session", err)
	}
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.Touch(now, s.ttl)

	if err := s.sessions.Create(ctx, rec); err != nil {
		log.Error("failed to create screening session",
			"error", err,
			"operator_id", operatorID)
		return nil, NewServiceError("start_session", "failed to save session", err)
	}

	log.Info("screening session started",
		"session_id", rec.ID,
		"operator_id", operatorID)
	return s.view(rec, st), nil
}

// RecordMeasurements implements Service.
func (s *serviceImpl) RecordMeasurements(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
	profile domain.ChildProfile,
) (*SessionView, error) {
	report, err := s.EvaluateGrowth(ctx, profile)
	if err != nil {
		return nil, NewServiceError("record_measurements", "invalid measurements", err)
	}
	return s.mutate(ctx, "record_measurements", operatorID, sessionID, func(st fsm.Session) (fsm.Session, error) {
		return s.controller.SubmitMeasurements(st, report)
	})
}

// AnswerRedFlag implements Service.
func (s *serviceImpl) AnswerRedFlag(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
	flagID string,
	yes bool,
) (*SessionView, error) {
	return s.mutate(ctx, "answer_red_flag", operatorID, sessionID, func(st fsm.Session) (fsm.Session, error) {
		// Checked under the row lock so a repeated submission cannot land on
		// the next flag.
		if flagID != "" && st.Phase == domain.PhaseRedFlags {
			current, err := s.controller.Prompt(st)
			if err != nil {
				return st, err
			}
			if current.ID != flagID {
				return st, fmt.Errorf("%w: answered %q, current %q", ErrStalePrompt, flagID, current.ID)
			}
		}
		return s.controller.AnswerRedFlag(st, yes)
	})
}

// AnswerQuestion implements Service.
func (s *serviceImpl) AnswerQuestion(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
	symptomID string,
	value inference.AnswerValue,
) (*SessionView, error) {
	return s.mutate(ctx, "answer_question", operatorID, sessionID, func(st fsm.Session) (fsm.Session, error) {
		next, err := s.controller.AnswerQuestion(st, symptomID, value)
		if errors.Is(err, inference.ErrUnknownSymptom) {
			return next, &UnknownSymptomError{
				SymptomID:   symptomID,
				Suggestions: s.bundle.SuggestSymptoms(symptomID),
			}
		}
		return next, err
	})
}

// ResetSession implements Service.
func (s *serviceImpl) ResetSession(ctx context.Context, operatorID, sessionID uuid.UUID) (*SessionView, error) {
	return s.mutate(ctx, "reset_session", operatorID, sessionID, func(fsm.Session) (fsm.Session, error) {
		return s.controller.Reset(), nil
	})
}

// mutate applies fn to the session's state under a row lock and persists the
// result. A session that reaches RESULT in this call is stamped complete and
// announced after the transaction commits.
func (s *serviceImpl) mutate(
	ctx context.Context,
	operation string,
	operatorID, sessionID uuid.UUID,
	fn func(fsm.Session) (fsm.Session, error),
) (*SessionView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"operation", operation,
		"session_id", sessionID,
		"operator_id", operatorID)

	var (
		view      *SessionView
		completed *events.ScreeningCompleted
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)

		rec, err := sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := s.checkAccess(rec, operatorID, now); err != nil {
			return err
		}

		st, err := decodeState(rec)
		if err != nil {
			return err
		}
		wasFinished := st.Outcome != nil

		next, err := fn(st)
		if err != nil {
			return err
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		rec.State = raw
		rec.Phase = next.Phase
		rec.Touch(now, s.ttl)

		switch {
		case next.Outcome == nil:
			rec.OutcomeStatus = nil
			rec.TriageLevel = nil
			rec.CompletedAt = nil
		case !wasFinished:
			rec.Complete(*next.Outcome, now)
			completed = &events.ScreeningCompleted{
				SessionID:     rec.ID,
				OperatorID:    rec.OperatorID,
				OutcomeStatus: string(next.Outcome.Status),
				TriageLevel:   string(next.Outcome.TriageLevel),
			}
		}

		if err := sessions.Update(ctx, rec); err != nil {
			return err
		}
		view = s.view(rec, next)
		return nil
	})
	if err != nil {
		log.Debug("screening operation rejected", "error", err)
		return nil, NewServiceError(operation, "operation failed", err)
	}

	log.Info("screening session updated", "phase", view.Record.Phase)
	if completed != nil {
		s.announce(ctx, *completed)
	}
	return view, nil
}

// announce emits the completion event. Failures are logged; the screening
// itself has already been saved.
func (s *serviceImpl) announce(ctx context.Context, payload events.ScreeningCompleted) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewScreeningCompletedEvent(payload)
	if err != nil {
		log.Error("failed to build screening completed event", "error", err)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit screening completed event",
			"error", err,
			"session_id", payload.SessionID)
		return
	}
	log.Info("screening completed",
		"session_id", payload.SessionID,
		"outcome_status", payload.OutcomeStatus,
		"triage_level", payload.TriageLevel)
}

// checkAccess enforces ownership and expiry.
func (s *serviceImpl) checkAccess(rec *domain.ScreeningSession, operatorID uuid.UUID, now time.Time) error {
	if err := checkOwner(rec, operatorID); err != nil {
		return err
	}
	if rec.IsExpired(now) {
		return ErrSessionExpired
	}
	return nil
}

func checkOwner(rec *domain.ScreeningSession, operatorID uuid.UUID) error {
	if rec.OperatorID != operatorID {
		return ErrSessionNotOwned
	}
	return nil
}

// load reads a session the operator owns, without locking it.
func (s *serviceImpl) load(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) (*domain.ScreeningSession, fsm.Session, error) {
	rec, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fsm.Session{}, err
	}
	if err := checkOwner(rec, operatorID); err != nil {
		return nil, fsm.Session{}, err
	}
	st, err := decodeState(rec)
	if err != nil {
		return nil, fsm.Session{}, err
	}
	return rec, st, nil
}

// GetPrompt implements Service.
func (s *serviceImpl) GetPrompt(ctx context.Context, operatorID, sessionID uuid.UUID) (*fsm.Prompt, error) {
	rec, st, err := s.load(ctx, operatorID, sessionID)
	if err != nil {
		return nil, NewServiceError("get_prompt", "failed to load session", err)
	}
	if rec.IsExpired(s.now().UTC()) {
		return nil, ErrSessionExpired
	}
	prompt, err := s.controller.Prompt(st)
	if err != nil {
		return nil, NewServiceError("get_prompt", "no question pending", err)
	}
	return &prompt, nil
}

// GetSession implements Service.
func (s *serviceImpl) GetSession(ctx context.Context, operatorID, sessionID uuid.UUID) (*SessionView, error) {
	rec, st, err := s.load(ctx, operatorID, sessionID)
	if err != nil {
		return nil, NewServiceError("get_session", "failed to load session", err)
	}
	return s.view(rec, st), nil
}

// GetHistory implements Service.
func (s *serviceImpl) GetHistory(ctx context.Context, operatorID, sessionID uuid.UUID) ([]fsm.HistoryEntry, error) {
	_, st, err := s.load(ctx, operatorID, sessionID)
	if err != nil {
		return nil, NewServiceError("get_history", "failed to load session", err)
	}
	return s.controller.History(st), nil
}

// ListSessions implements Service.
func (s *serviceImpl) ListSessions(
	ctx context.Context,
	operatorID uuid.UUID,
	limit, offset int,
) ([]*domain.ScreeningSession, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.sessions.ListByOperator(ctx, operatorID, limit, offset)
	if err != nil {
		return nil, NewServiceError("list_sessions", "failed to list sessions", err)
	}
	return list, nil
}

// VerifySession implements Service.
func (s *serviceImpl) VerifySession(ctx context.Context, operatorID, sessionID uuid.UUID) (*VerifyResult, error) {
	_, st, err := s.load(ctx, operatorID, sessionID)
	if err != nil {
		return nil, NewServiceError("verify_session", "failed to load session", err)
	}

	result := &VerifyResult{SessionID: sessionID, Valid: true, Steps: len(st.History)}
	if err := s.controller.Verify(st); err != nil {
		if !errors.Is(err, fsm.ErrReplayMismatch) {
			return nil, NewServiceError("verify_session", "replay failed", err)
		}
		result.Valid = false
		result.Reason = err.Error()
		logger.FromContextOrDefault(ctx, s.logger).Warn("screening session failed verification",
			"session_id", sessionID,
			"reason", result.Reason)
	}
	return result, nil
}

// ListArticles implements Service.
func (s *serviceImpl) ListArticles(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) ([]*domain.EducationArticle, error) {
	if _, _, err := s.load(ctx, operatorID, sessionID); err != nil {
		return nil, NewServiceError("list_articles", "failed to load session", err)
	}
	list, err := s.articles.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError("list_articles", "failed to list articles", err)
	}
	return list, nil
}

// EvaluateGrowth implements Service.
func (s *serviceImpl) EvaluateGrowth(_ context.Context, profile domain.ChildProfile) (*growth.Report, error) {
	report, err := growth.Analyze(profile, s.bundle.References)
	if err != nil {
		return nil, NewServiceError("evaluate_growth", "invalid measurements", err)
	}
	return report, nil
}

// Knowledge implements Service.
func (s *serviceImpl) Knowledge() knowledge.Summary {
	return s.bundle.Summary()
}

// PurgeExpired implements Service.
func (s *serviceImpl) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, NewServiceError("purge_expired", "failed to delete expired sessions", err)
	}
	if n > 0 {
		logger.FromContextOrDefault(ctx, s.logger).Info("purged expired screening sessions", "count", n)
	}
	return n, nil
}

func (s *serviceImpl) view(rec *domain.ScreeningSession, st fsm.Session) *SessionView {
	v := &SessionView{Record: rec, State: st}
	if st.Phase == domain.PhaseRedFlags || st.Phase == domain.PhaseQuiz {
		if p, err := s.controller.Prompt(st); err == nil {
			v.Prompt = &p
		}
	}
	return v
}

// decodeState unmarshals the state stored with a session.
func decodeState(rec *domain.ScreeningSession) (fsm.Session, error) {
	var st fsm.Session
	if err := json.Unmarshal(rec.State, &st); err != nil {
		return fsm.Session{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if st.Phase != rec.Phase {
		return fsm.Session{}, fmt.Errorf("%w: phase %s, stored %s", ErrCorruptState, st.Phase, rec.Phase)
	}
	return st, nil
}

// Package screening sequences a screening session through its phases:
// measurements, red-flag triage, differential questioning and the result.
package screening

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	"github.com/mydudu/screening-api/internal/domain/triage"
)

// Controller errors.
var (
	// ErrInvalidPhase is returned when an operation is called in the wrong phase.
	ErrInvalidPhase = fmt.Errorf("%w: operation not allowed in current phase", domain.ErrInvalidPhase)

	// ErrMissingReport is returned when measurements are submitted without a report.
	ErrMissingReport = errors.New("growth report cannot be nil")

	// ErrReplayMismatch is returned when replaying a session's history does not
	// reproduce its recorded state.
	ErrReplayMismatch = errors.New("session replay does not match recorded state")
)

// Controller drives sessions through the screening state machine. It holds
// only immutable configuration and is safe for concurrent use; a single
// session must not be advanced concurrently.
type Controller struct {
	engine *inference.Engine
	flags  []triage.RedFlag
	now    func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to timestamp outcomes.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a controller for the given engine and ordered red flags.
func NewController(engine *inference.Engine, flags []triage.RedFlag, opts ...Option) (*Controller, error) {
	if engine == nil {
		return nil, errors.New("inference engine cannot be nil")
	}
	if err := triage.ValidateFlags(flags); err != nil {
		return nil, err
	}

	c := &Controller{
		engine: engine,
		flags:  append([]triage.RedFlag(nil), flags...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Engine returns the controller's inference engine.
func (c *Controller) Engine() *inference.Engine {
	return c.engine
}

// RedFlags returns the ordered red-flag list.
func (c *Controller) RedFlags() []triage.RedFlag {
	return append([]triage.RedFlag(nil), c.flags...)
}

// New returns a fresh session waiting for measurements.
func (c *Controller) New() Session {
	return Session{
		Phase:   domain.PhaseMeasurements,
		Triage:  triage.State{Answers: []bool{}},
		History: []HistoryEntry{},
	}
}

// Reset discards a session and returns a fresh one. Nothing carries over.
func (c *Controller) Reset() Session {
	return c.New()
}

// SubmitMeasurements attaches the growth report and starts red-flag triage.
// With no red flags configured the session moves straight to questioning.
func (c *Controller) SubmitMeasurements(s Session, report *growth.Report) (Session, error) {
	if s.Phase != domain.PhaseMeasurements {
		return s, ErrInvalidPhase
	}
	if report == nil {
		return s, ErrMissingReport
	}

	next := s.clone()
	next.Growth = report
	next.Triage = triage.Start(c.flags)
	next.Phase = domain.PhaseRedFlags
	if next.Triage.Cleared {
		c.enterQuiz(&next)
	}
	return next, nil
}

// Prompt returns the question the session is waiting on.
func (c *Controller) Prompt(s Session) (Prompt, error) {
	step := len(s.History) + 1

	switch s.Phase {
	case domain.PhaseRedFlags:
		f, ok := triage.Current(c.flags, s.Triage)
		if !ok {
			return Prompt{}, fmt.Errorf("%w: no red flag pending", triage.ErrInvalidState)
		}
		return Prompt{Kind: PromptRedFlag, ID: f.ID, Question: f.Question, Reason: f.Reason, Step: step}, nil

	case domain.PhaseQuiz:
		if s.Inference == nil {
			return Prompt{}, inference.ErrInvalidState
		}
		sym, ok := c.engine.NextQuestion(*s.Inference)
		if !ok {
			return Prompt{}, fmt.Errorf("%w: no question pending", inference.ErrInvalidState)
		}
		return Prompt{Kind: PromptSymptom, ID: sym.ID, Question: sym.Question, Layman: sym.Layman, Step: step}, nil

	default:
		return Prompt{}, ErrInvalidPhase
	}
}

// AnswerRedFlag answers the current red flag. A "yes" ends the session with
// an emergency outcome; clearing every flag starts questioning with a fresh
// distribution.
func (c *Controller) AnswerRedFlag(s Session, yes bool) (Session, error) {
	if s.Phase != domain.PhaseRedFlags {
		return s, ErrInvalidPhase
	}
	flag, ok := triage.Current(c.flags, s.Triage)
	if !ok {
		return s, triage.ErrTriageFinished
	}

	ts, err := triage.Answer(c.flags, s.Triage, yes)
	if err != nil {
		return s, err
	}

	next := s.clone()
	next.Triage = ts
	value := string(inference.AnswerNo)
	if yes {
		value = string(inference.AnswerYes)
	}
	next.record(domain.PhaseRedFlags, flag.ID, flag.Question, value)

	switch {
	case ts.Emergency != nil:
		next.Phase = domain.PhaseResult
		next.Outcome = &domain.ScreeningOutcome{
			Status: domain.OutcomeEmergency,
			Emergency: &domain.EmergencyDetail{
				FlagID:   ts.Emergency.FlagID,
				Question: ts.Emergency.Question,
				Reason:   ts.Emergency.Reason,
			},
			Explanation: []string{ts.Emergency.Reason},
			TriageLevel: domain.TriageEmergency,
			Timestamp:   c.now().UTC(),
		}
	case ts.Cleared:
		c.enterQuiz(&next)
	}
	return next, nil
}

// enterQuiz starts inference from the priors. A knowledge base with nothing
// worth asking finishes immediately as inconclusive.
func (c *Controller) enterQuiz(s *Session) {
	st := c.engine.Start()
	s.Inference = &st
	s.Phase = domain.PhaseQuiz

	if _, ok := c.engine.NextQuestion(st); !ok {
		st.Status = inference.StatusInconclusive
		c.finish(s)
	}
}

// AnswerQuestion records a symptom answer. When the inference reaches a
// terminal status the session moves to the result.
func (c *Controller) AnswerQuestion(s Session, symptomID string, value inference.AnswerValue) (Session, error) {
	if s.Phase != domain.PhaseQuiz {
		return s, ErrInvalidPhase
	}
	if s.Inference == nil {
		return s, inference.ErrInvalidState
	}

	st, err := c.engine.Assess(*s.Inference, inference.Answer{SymptomID: symptomID, Value: value})
	if err != nil {
		return s, err
	}
	sym, _ := c.engine.KnowledgeBase().Symptom(symptomID)

	next := s.clone()
	next.Inference = &st
	next.record(domain.PhaseQuiz, sym.ID, sym.Question, string(value))

	if st.Status.Terminal() {
		c.finish(&next)
	}
	return next, nil
}

func (c *Controller) finish(s *Session) {
	st := *s.Inference
	outcome := &domain.ScreeningOutcome{
		Status:      domain.OutcomeInconclusive,
		Explanation: c.engine.Explain(st),
		Timestamp:   c.now().UTC(),
	}
	if st.Status == inference.StatusDiagnosed {
		outcome.Status = domain.OutcomeDiagnosed
	}

	urgent := false
	if top, ok := c.engine.Top(st); ok {
		outcome.TopDisease = &domain.DiseaseResult{
			ID:          top.ID,
			Name:        top.Name,
			Probability: top.Probability,
			Urgent:      top.Urgent,
		}
		urgent = top.Urgent
	}
	outcome.TriageLevel = domain.TriageLevelFor(outcome.Status, urgent)

	s.Inference = &st
	s.Phase = domain.PhaseResult
	s.Outcome = outcome
}

// History returns a copy of the session's audit trail.
func (c *Controller) History(s Session) []HistoryEntry {
	return append([]HistoryEntry{}, s.History...)
}

// Replay rebuilds a session from its growth report and recorded history.
// Identical inputs always produce an identical session apart from the
// outcome timestamp.
func (c *Controller) Replay(report *growth.Report, history []HistoryEntry) (Session, error) {
	s, err := c.SubmitMeasurements(c.New(), report)
	if err != nil {
		return s, err
	}

	for _, h := range history {
		switch h.Phase {
		case domain.PhaseRedFlags:
			s, err = c.AnswerRedFlag(s, h.AnswerYes)
		case domain.PhaseQuiz:
			s, err = c.AnswerQuestion(s, h.QuestionID, inference.AnswerValue(h.Value))
		default:
			err = fmt.Errorf("%w: history step %d has phase %q", ErrInvalidPhase, h.Step, h.Phase)
		}
		if err != nil {
			return s, fmt.Errorf("replaying step %d: %w", h.Step, err)
		}
	}
	return s, nil
}

// Verify replays a recorded session and checks that it reproduces the same
// phase, engine states and outcome.
func (c *Controller) Verify(recorded Session) error {
	if recorded.Phase == domain.PhaseMeasurements {
		if len(recorded.History) > 0 {
			return fmt.Errorf("%w: answers recorded before measurements", ErrReplayMismatch)
		}
		return nil
	}

	replayed, err := c.Replay(recorded.Growth, recorded.History)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReplayMismatch, err)
	}

	if replayed.Phase != recorded.Phase {
		return fmt.Errorf("%w: phase %s, recorded %s", ErrReplayMismatch, replayed.Phase, recorded.Phase)
	}
	if !sameJSON(replayed.Triage, recorded.Triage) {
		return fmt.Errorf("%w: red-flag state differs", ErrReplayMismatch)
	}
	if !sameJSON(replayed.Inference, recorded.Inference) {
		return fmt.Errorf("%w: inference state differs", ErrReplayMismatch)
	}
	if !sameOutcome(replayed.Outcome, recorded.Outcome) {
		return fmt.Errorf("%w: outcome differs", ErrReplayMismatch)
	}
	return nil
}

func sameOutcome(a, b *domain.ScreeningOutcome) bool {
	if a == nil || b == nil {
		return a == b
	}
	x, y := *a, *b
	x.Timestamp, y.Timestamp = time.Time{}, time.Time{}
	return sameJSON(x, y)
}

func sameJSON(a, b any) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}

package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session-specific validation errors
var (
	// ErrSessionIDEmpty is returned when a session ID is empty or nil.
	ErrSessionIDEmpty = errors.New("session ID cannot be empty")

	// ErrSessionOperatorIDEmpty is returned when a session has no operator.
	ErrSessionOperatorIDEmpty = errors.New("session operator ID cannot be empty")

	// ErrSessionChildRefEmpty is returned when a session has no child reference.
	ErrSessionChildRefEmpty = errors.New("session child reference cannot be empty")

	// ErrSessionStateInvalid is returned when the serialized state is not valid JSON.
	ErrSessionStateInvalid = errors.New("session state must be valid JSON")
)

// Phase is a step of the screening state machine.
type Phase string

// Screening phases in the order a session passes through them.
const (
	PhaseMeasurements Phase = "MEASUREMENTS"
	PhaseRedFlags     Phase = "RED_FLAGS"
	PhaseQuiz         Phase = "QUIZ"
	PhaseResult       Phase = "RESULT"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseMeasurements, PhaseRedFlags, PhaseQuiz, PhaseResult:
		return true
	default:
		return false
	}
}

// ScreeningSession is the persisted envelope around a screening state machine.
// State holds the serialized controller session; the remaining fields are
// denormalized for querying.
type ScreeningSession struct {
	ID            uuid.UUID       `json:"id"`
	OperatorID    uuid.UUID       `json:"operator_id"`
	ChildRef      string          `json:"child_ref"`
	Phase         Phase           `json:"phase"`
	State         json.RawMessage `json:"state"`
	OutcomeStatus *OutcomeStatus  `json:"outcome_status,omitempty"`
	TriageLevel   *TriageLevel    `json:"triage_level,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// NewScreeningSession creates a session in the MEASUREMENTS phase that expires
// after ttl of inactivity. Returns an error if validation fails.
func NewScreeningSession(
	operatorID uuid.UUID,
	childRef string,
	state json.RawMessage,
	ttl time.Duration,
) (*ScreeningSession, error) {
	now := time.Now().UTC()
	s := &ScreeningSession{
		ID:         uuid.New(),
		OperatorID: operatorID,
		ChildRef:   childRef,
		Phase:      PhaseMeasurements,
		State:      state,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the ScreeningSession has valid data.
func (s *ScreeningSession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSessionIDEmpty
	}

	if s.OperatorID == uuid.Nil {
		return ErrSessionOperatorIDEmpty
	}

	if s.ChildRef == "" {
		return ErrSessionChildRefEmpty
	}

	if !s.Phase.Valid() {
		return ErrInvalidPhase
	}

	if s.OutcomeStatus != nil && !s.OutcomeStatus.Valid() {
		return ErrInvalidOutcomeStatus
	}

	if len(s.State) == 0 || !json.Valid(s.State) {
		return ErrSessionStateInvalid
	}

	return nil
}

// IsExpired reports whether the session timed out before now. Completed
// sessions never expire.
func (s *ScreeningSession) IsExpired(now time.Time) bool {
	return s.CompletedAt == nil && now.After(s.ExpiresAt)
}

// Touch records activity on the session and pushes its expiry forward.
func (s *ScreeningSession) Touch(now time.Time, ttl time.Duration) {
	s.UpdatedAt = now.UTC()
	s.ExpiresAt = s.UpdatedAt.Add(ttl)
}

// Complete stamps the session with its terminal outcome.
func (s *ScreeningSession) Complete(outcome ScreeningOutcome, now time.Time) {
	status := outcome.Status
	level := outcome.TriageLevel
	completed := now.UTC()
	s.Phase = PhaseResult
	s.OutcomeStatus = &status
	s.TriageLevel = &level
	s.CompletedAt = &completed
	s.UpdatedAt = completed
}

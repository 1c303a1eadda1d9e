package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/service/screening"
)

// StartSessionRequest defines the payload for opening a screening.
type StartSessionRequest struct {
	// ChildRef is the clinic's identifier for the child. It is pseudonymized
	// before storage and never returned.
	ChildRef string `json:"child_ref" validate:"required,max=128"`
}

// MeasurementsRequest defines the payload for the measurements step and the
// stateless growth evaluation.
type MeasurementsRequest struct {
	Sex          string   `json:"sex"            validate:"required,oneof=male female"`
	AgeDays      *int     `json:"age_days"       validate:"required,gte=0,lte=1856"`
	WeightKg     float64  `json:"weight_kg"      validate:"gt=0,lte=150"`
	HeightCm     float64  `json:"height_cm"      validate:"gt=0,lte=200"`
	TemperatureC *float64 `json:"temperature_c"  validate:"omitempty,gte=25,lte=45"`
	HeartRateBpm *int     `json:"heart_rate_bpm" validate:"omitempty,gt=0,lte=300"`
}

// Profile converts the request to the domain profile.
func (r MeasurementsRequest) Profile() domain.ChildProfile {
	p := domain.ChildProfile{
		Sex:          domain.Sex(r.Sex),
		WeightKg:     r.WeightKg,
		HeightCm:     r.HeightCm,
		TemperatureC: r.TemperatureC,
		HeartRateBpm: r.HeartRateBpm,
	}
	if r.AgeDays != nil {
		p.AgeDays = *r.AgeDays
	}
	return p
}

// RedFlagAnswerRequest defines the payload for answering a danger sign.
type RedFlagAnswerRequest struct {
	// FlagID optionally names the flag being answered. When set it must match
	// the current prompt, which guards against answering a stale question.
	FlagID string `json:"flag_id"`
	Answer *bool  `json:"answer" validate:"required"`
}

// QuestionAnswerRequest defines the payload for answering a symptom question.
type QuestionAnswerRequest struct {
	SymptomID string `json:"symptom_id" validate:"required,max=64"`
	Value     string `json:"value"      validate:"required,oneof=yes no dont_know"`
}

// AnswerValue returns the typed answer.
func (r QuestionAnswerRequest) AnswerValue() inference.AnswerValue {
	return inference.AnswerValue(r.Value)
}

// HypothesisResponse is one disease in the current differential.
type HypothesisResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Urgent      bool    `json:"urgent"`
}

// SessionResponse is the client view of a screening session.
type SessionResponse struct {
	ID               uuid.UUID                `json:"id"`
	ChildRef         string                   `json:"child_ref"`
	Phase            domain.Phase             `json:"phase"`
	Growth           *growth.Report           `json:"growth,omitempty"`
	RedFlagsAnswered int                      `json:"red_flags_answered"`
	Differential     []HypothesisResponse     `json:"differential,omitempty"`
	Prompt           *fsm.Prompt              `json:"prompt,omitempty"`
	Outcome          *domain.ScreeningOutcome `json:"outcome,omitempty"`
	Steps            int                      `json:"steps"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
	ExpiresAt        time.Time                `json:"expires_at"`
	CompletedAt      *time.Time               `json:"completed_at,omitempty"`
}

// SessionSummaryResponse is a session in a list, without its state.
type SessionSummaryResponse struct {
	ID            uuid.UUID             `json:"id"`
	ChildRef      string                `json:"child_ref"`
	Phase         domain.Phase          `json:"phase"`
	OutcomeStatus *domain.OutcomeStatus `json:"outcome_status,omitempty"`
	TriageLevel   *domain.TriageLevel   `json:"triage_level,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ExpiresAt     time.Time             `json:"expires_at"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

// ListSessionsResponse is a page of sessions.
type ListSessionsResponse struct {
	Sessions []SessionSummaryResponse `json:"sessions"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// HistoryResponse is the ordered answer trail of a session.
type HistoryResponse struct {
	SessionID uuid.UUID          `json:"session_id"`
	Entries   []fsm.HistoryEntry `json:"entries"`
}

// ArticleResponse is an education article generated for a session.
type ArticleResponse struct {
	ID          uuid.UUID `json:"id"`
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArticlesResponse lists a session's articles.
type ArticlesResponse struct {
	SessionID uuid.UUID         `json:"session_id"`
	Articles  []ArticleResponse `json:"articles"`
}

func sessionToResponse(v *screening.SessionView) SessionResponse {
	rec := v.Record
	resp := SessionResponse{
		ID:               rec.ID,
		ChildRef:         rec.ChildRef,
		Phase:            rec.Phase,
		Growth:           v.State.Growth,
		RedFlagsAnswered: len(v.State.Triage.Answers),
		Prompt:           v.Prompt,
		Outcome:          v.State.Outcome,
		Steps:            len(v.State.History),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		ExpiresAt:        rec.ExpiresAt,
		CompletedAt:      rec.CompletedAt,
	}
	if v.State.Inference != nil {
		for _, h := range v.State.Inference.Hypotheses {
			resp.Differential = append(resp.Differential, HypothesisResponse{
				ID:          h.ID,
				Name:        h.Name,
				Probability: h.Probability,
				Urgent:      h.Urgent,
			})
		}
	}
	return resp
}

func sessionToSummary(s *domain.ScreeningSession) SessionSummaryResponse {
	return SessionSummaryResponse{
		ID:            s.ID,
		ChildRef:      s.ChildRef,
		Phase:         s.Phase,
		OutcomeStatus: s.OutcomeStatus,
		TriageLevel:   s.TriageLevel,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ExpiresAt:     s.ExpiresAt,
		CompletedAt:   s.CompletedAt,
	}
}

func articleToResponse(a *domain.EducationArticle) ArticleResponse {
	return ArticleResponse{
		ID:          a.ID,
		Topic:       a.Topic,
		Title:       a.Title,
		Description: a.Description,
		Link:        a.Link,
		Image:       a.Image,
		CreatedAt:   a.CreatedAt,
	}
}

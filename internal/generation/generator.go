package generation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
)

// IndicatorContext is one growth indicator as shown to the model.
type IndicatorContext struct {
	Indicator string   `json:"indicator"`
	ZScore    *float64 `json:"z_score,omitempty"`
	Category  string   `json:"category"`
}

// ArticleRequest carries the de-identified clinical context of a finished
// screening. It never includes the child's name or caregiver identifiers.
type ArticleRequest struct {
	SessionID     uuid.UUID          `json:"-"`
	Topic         string             `json:"topic"`
	AgeMonths     int                `json:"age_months"`
	Sex           string             `json:"sex"`
	Overall       string             `json:"overall_status"`
	Outcome       string             `json:"screening_outcome"`
	Disease       string             `json:"suspected_condition,omitempty"`
	Indicators    []IndicatorContext `json:"growth_indicators,omitempty"`
	TemperatureC  *float64           `json:"temperature_c,omitempty"`
	HeartRateBPM  *float64           `json:"heart_rate_bpm,omitempty"`
	Explanation   []string           `json:"findings,omitempty"`
	ClinicalNotes []string           `json:"vital_notes,omitempty"`
}

// Validate checks the minimum a generator needs.
func (r ArticleRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return fmt.Errorf("%w: session ID is empty", ErrInvalidRequest)
	}
	if r.Topic == "" {
		return fmt.Errorf("%w: topic is empty", ErrInvalidRequest)
	}
	return nil
}

// ArticleGenerator produces caregiver-facing reading material for the outcome
// of a screening.
type ArticleGenerator interface {
	// GenerateArticle returns a validated article bound to req.SessionID.
	// Errors wrap one of the sentinels in errors.go.
	GenerateArticle(ctx context.Context, req ArticleRequest) (*domain.EducationArticle, error)
}

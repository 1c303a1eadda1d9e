package inference

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when engine parameters are out of range.
var ErrInvalidParams = errors.New("invalid inference parameters")

// Params defines all tunable parameters of the inference engine
type Params struct {
	// Stopping rule
	ConfidenceThreshold float64
	MinMargin           float64

	// Numeric safety: every updated probability is clamped to at least this
	// value before renormalizing
	ProbabilityFloor float64

	// Question selection
	PlausibilityFloor  float64
	MinInformationGain float64

	// Likelihood used for "don't know" answers and missing table entries
	NeutralLikelihood float64

	// Maximum number of answers cited in an explanation
	ExplanationLimit int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	ConfidenceThreshold float64
	MinMargin           float64
	ProbabilityFloor    float64
	PlausibilityFloor   float64
	MinInformationGain  float64
	ExplanationLimit    int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		ConfidenceThreshold: 0.85,
		MinMargin:           0.30,
		ProbabilityFloor:    1e-6,
		PlausibilityFloor:   0.01,
		MinInformationGain:  0.01, // bits
		NeutralLikelihood:   0.5,
		ExplanationLimit:    3,
	}
}

// NewParams creates a new Params instance with custom configuration. Zero
// fields keep their defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.ConfidenceThreshold > 0 {
		params.ConfidenceThreshold = config.ConfidenceThreshold
	}
	if config.MinMargin > 0 {
		params.MinMargin = config.MinMargin
	}
	if config.ProbabilityFloor > 0 {
		params.ProbabilityFloor = config.ProbabilityFloor
	}
	if config.PlausibilityFloor > 0 {
		params.PlausibilityFloor = config.PlausibilityFloor
	}
	if config.MinInformationGain > 0 {
		params.MinInformationGain = config.MinInformationGain
	}
	if config.ExplanationLimit > 0 {
		params.ExplanationLimit = config.ExplanationLimit
	}

	return params
}

// Validate checks that every parameter is within its usable range.
func (p *Params) Validate() error {
	switch {
	case p.ConfidenceThreshold <= 0 || p.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence threshold %g not in (0,1]", ErrInvalidParams, p.ConfidenceThreshold)
	case p.MinMargin < 0 || p.MinMargin >= 1:
		return fmt.Errorf("%w: margin %g not in [0,1)", ErrInvalidParams, p.MinMargin)
	case p.ProbabilityFloor <= 0 || p.ProbabilityFloor >= 0.1:
		return fmt.Errorf("%w: probability floor %g not in (0,0.1)", ErrInvalidParams, p.ProbabilityFloor)
	case p.PlausibilityFloor < 0 || p.PlausibilityFloor >= 1:
		return fmt.Errorf("%w: plausibility floor %g not in [0,1)", ErrInvalidParams, p.PlausibilityFloor)
	case p.MinInformationGain < 0:
		return fmt.Errorf("%w: negative information gain threshold", ErrInvalidParams)
	case p.NeutralLikelihood <= 0 || p.NeutralLikelihood > 1:
		return fmt.Errorf("%w: neutral likelihood %g not in (0,1]", ErrInvalidParams, p.NeutralLikelihood)
	case p.ExplanationLimit < 1:
		return fmt.Errorf("%w: explanation limit must be at least 1", ErrInvalidParams)
	}
	return nil
}

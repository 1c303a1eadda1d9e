// Package growth implements the WHO LMS growth-reference math: converting raw
// measurements to z-scores and back, classifying z-scores into clinical
// categories and evaluating a child profile against reference tables.
package growth

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfDomain is returned when the LMS transform has no real solution for
// the given inputs.
var ErrOutOfDomain = errors.New("value outside LMS transform domain")

// lambdaEpsilon is the |L| below which the exponential form is used.
const lambdaEpsilon = 1e-9

// LMS holds the Box-Cox power (L), median (M) and coefficient of variation (S)
// of a reference distribution at one age or length.
type LMS struct {
	L float64 `json:"l" yaml:"l"`
	M float64 `json:"m" yaml:"m"`
	S float64 `json:"s" yaml:"s"`
}

// Validate checks that the parameters describe a usable distribution.
func (p LMS) Validate() error {
	if !isFinite(p.L) || !isFinite(p.M) || !isFinite(p.S) {
		return fmt.Errorf("%w: non-finite parameters", ErrOutOfDomain)
	}
	if p.M <= 0 || p.S <= 0 {
		return fmt.Errorf("%w: median and coefficient of variation must be positive", ErrOutOfDomain)
	}
	return nil
}

// ValueFromZ converts a z-score to the physical value it represents.
//
// When L is effectively zero the exponential form M·exp(S·z) is used,
// otherwise the power form M·(1+L·S·z)^(1/L). A non-positive base has no real
// solution and yields ErrOutOfDomain rather than a negative or NaN value.
func ValueFromZ(z float64, p LMS) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if !isFinite(z) {
		return 0, fmt.Errorf("%w: z-score is not finite", ErrOutOfDomain)
	}

	if math.Abs(p.L) < lambdaEpsilon {
		return p.M * math.Exp(p.S*z), nil
	}

	base := 1 + p.L*p.S*z
	if base <= 0 {
		return 0, fmt.Errorf("%w: 1+L*S*z = %g", ErrOutOfDomain, base)
	}

	v := p.M * math.Pow(base, 1/p.L)
	if !isFinite(v) || v <= 0 {
		return 0, fmt.Errorf("%w: value %g", ErrOutOfDomain, v)
	}
	return v, nil
}

// ZFromValue converts a physical value to its z-score. It is the exact inverse
// of ValueFromZ.
func ZFromValue(x float64, p LMS) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if !isFinite(x) || x <= 0 {
		return 0, fmt.Errorf("%w: measurement must be positive", ErrOutOfDomain)
	}

	var z float64
	if math.Abs(p.L) < lambdaEpsilon {
		z = math.Log(x/p.M) / p.S
	} else {
		z = (math.Pow(x/p.M, p.L) - 1) / (p.L * p.S)
	}

	if !isFinite(z) {
		return 0, fmt.Errorf("%w: z-score is not finite", ErrOutOfDomain)
	}
	return z, nil
}

// Boundary is the physical value at one requested z-score. Value is nil and
// OutOfDomain is set when the transform has no solution at Z.
type Boundary struct {
	Z           float64  `json:"z"`
	Value       *float64 `json:"value"`
	OutOfDomain bool     `json:"out_of_domain,omitempty"`
}

// StandardZPoints are the cut-offs shown to caregivers as the normal range.
var StandardZPoints = []float64{-3, -2, 0, 2, 3}

// Boundaries returns the physical value at each requested z-score, in the
// order requested. Points with no solution are flagged rather than dropped.
func Boundaries(p LMS, zs []float64) ([]Boundary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := make([]Boundary, 0, len(zs))
	for _, z := range zs {
		v, err := ValueFromZ(z, p)
		if err != nil {
			out = append(out, Boundary{Z: z, OutOfDomain: true})
			continue
		}
		out = append(out, Boundary{Z: z, Value: &v})
	}
	return out, nil
}

// Percentile returns the position of z in the standard normal distribution as
// a percentage between 0 and 100.
func Percentile(z float64) float64 {
	return 50 * (1 + math.Erf(z/math.Sqrt2))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

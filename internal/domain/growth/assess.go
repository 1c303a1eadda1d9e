package growth

import (
	"errors"
	"fmt"

	"github.com/mydudu/screening-api/internal/domain"
)

// Age limits used when choosing indicators, in days.
const (
	// WeightForAgeMaxDays is the last day covered by the weight-for-age standard.
	WeightForAgeMaxDays = 1856
	// LengthMaxDays is the age from which standing height replaces recumbent length.
	LengthMaxDays = 730
)

// Assessment is the evaluation of one measurement against its reference.
// ZScore and Percentile are nil when the classification is invalid.
type Assessment struct {
	Indicator      domain.IndicatorKind `json:"indicator"`
	Value          float64              `json:"value"`
	Unit           domain.Unit          `json:"unit"`
	ZScore         *float64             `json:"z_score"`
	Percentile     *float64             `json:"percentile"`
	Classification Classification       `json:"classification"`
	Deviation      float64              `json:"deviation"`
	IdealValue     float64              `json:"ideal_value"`
	Color          string               `json:"color"`
	Boundaries     []Boundary           `json:"boundaries"`
	LMS            LMS                  `json:"lms"`
}

// Evaluate compares a measurement with the reference parameters for its
// indicator. Numeric problems are folded into the invalid category; only an
// unusable measurement or parameter set is returned as an error.
func Evaluate(m domain.Measurement, p LMS) (Assessment, error) {
	if err := m.Validate(); err != nil {
		return Assessment{}, err
	}
	if err := p.Validate(); err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		Indicator:  m.Kind,
		Value:      m.Value,
		Unit:       m.Unit,
		Deviation:  m.Value - p.M,
		IdealValue: p.M,
		LMS:        p,
	}

	var zp *float64
	if z, err := ZFromValue(m.Value, p); err == nil {
		zp = &z
	}

	c, err := Classify(zp, m.Kind)
	if err != nil {
		return Assessment{}, err
	}
	a.Classification = c

	if c.Category == CategoryInvalid {
		a.Color = ColorNeutral
	} else {
		pct := Percentile(*zp)
		a.ZScore = zp
		a.Percentile = &pct
		a.Color = GradientColor(*zp)
	}

	// Validated parameters always yield boundaries.
	a.Boundaries, _ = Boundaries(p, StandardZPoints)
	return a, nil
}

// VitalNote is an informational remark about a vital sign. Notes never change
// growth categories.
type VitalNote struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Vital note codes.
const (
	NoteFever       = "fever"
	NoteHighFever   = "high-fever"
	NoteTachycardia = "tachycardia"
	NoteBradycardia = "bradycardia"
)

// Temperature thresholds in degrees Celsius.
const (
	FeverThresholdC     = 37.5
	HighFeverThresholdC = 39.0
)

type heartRateBand struct {
	maxAgeDays int
	min, max   int
}

// Resting heart-rate ranges by age; the last band is open ended.
var heartRateBands = []heartRateBand{
	{365, 100, 160},
	{1095, 90, 150},
	{2190, 80, 140},
	{-1, 70, 120},
}

func heartRateRange(ageDays int) (int, int) {
	for _, b := range heartRateBands {
		if b.maxAgeDays < 0 || ageDays < b.maxAgeDays {
			return b.min, b.max
		}
	}
	last := heartRateBands[len(heartRateBands)-1]
	return last.min, last.max
}

// VitalNotes returns remarks for out-of-range vital signs in the profile.
func VitalNotes(p domain.ChildProfile) []VitalNote {
	var notes []VitalNote

	if p.TemperatureC != nil {
		t := *p.TemperatureC
		switch {
		case t >= HighFeverThresholdC:
			notes = append(notes, VitalNote{NoteHighFever, fmt.Sprintf("High fever (%.1f °C)", t)})
		case t >= FeverThresholdC:
			notes = append(notes, VitalNote{NoteFever, fmt.Sprintf("Fever (%.1f °C)", t)})
		}
	}

	if p.HeartRateBpm != nil {
		hr := *p.HeartRateBpm
		lo, hi := heartRateRange(p.AgeDays)
		switch {
		case hr > hi:
			notes = append(notes, VitalNote{NoteTachycardia, fmt.Sprintf("Heart rate %d bpm is above %d bpm", hr, hi)})
		case hr < lo:
			notes = append(notes, VitalNote{NoteBradycardia, fmt.Sprintf("Heart rate %d bpm is below %d bpm", hr, lo)})
		}
	}

	return notes
}

// Report is the full growth evaluation of one child profile.
type Report struct {
	Profile     domain.ChildProfile    `json:"profile"`
	Assessments []Assessment           `json:"assessments"`
	Summary     Summary                `json:"summary"`
	Notes       []VitalNote            `json:"notes,omitempty"`
	Missing     []domain.IndicatorKind `json:"missing,omitempty"`
}

// Classifications returns the classification of every assessment, in order.
func (r *Report) Classifications() []Classification {
	out := make([]Classification, len(r.Assessments))
	for i, a := range r.Assessments {
		out[i] = a.Classification
	}
	return out
}

type plannedIndicator struct {
	kind  domain.IndicatorKind
	value float64
	key   float64
}

// ApplicableIndicators returns the indicators evaluated for a profile, in
// evaluation order.
func ApplicableIndicators(p domain.ChildProfile) []domain.IndicatorKind {
	steps := plan(p)
	out := make([]domain.IndicatorKind, len(steps))
	for i, pi := range steps {
		out[i] = pi.kind
	}
	return out
}

func plan(p domain.ChildProfile) []plannedIndicator {
	age := float64(p.AgeDays)
	var out []plannedIndicator

	if p.AgeDays <= WeightForAgeMaxDays {
		out = append(out, plannedIndicator{domain.WeightForAge, p.WeightKg, age})
	}
	out = append(out, plannedIndicator{domain.LengthHeightForAge, p.HeightCm, age})
	if p.AgeDays < LengthMaxDays {
		out = append(out, plannedIndicator{domain.WeightForLength, p.WeightKg, p.HeightCm})
	} else {
		out = append(out, plannedIndicator{domain.WeightForHeight, p.WeightKg, p.HeightCm})
	}
	out = append(out, plannedIndicator{domain.BMIForAge, p.BMI(), age})

	return out
}

// Analyze evaluates every applicable indicator of the profile against the
// reference set. Indicators without a reference table are listed in
// Report.Missing rather than failing the whole analysis.
func Analyze(p domain.ChildProfile, refs *ReferenceSet) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if refs == nil {
		return nil, errors.New("reference set cannot be nil")
	}

	r := &Report{Profile: p}
	for _, pi := range plan(p) {
		lms, err := refs.Lookup(pi.kind, p.Sex, pi.key)
		if errors.Is(err, ErrTableNotFound) {
			r.Missing = append(r.Missing, pi.kind)
			continue
		}
		if err != nil {
			return nil, err
		}

		m, err := domain.NewMeasurement(pi.kind, pi.value)
		if err != nil {
			return nil, err
		}

		a, err := Evaluate(m, lms)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", pi.kind, err)
		}
		r.Assessments = append(r.Assessments, a)
	}

	r.Summary = Aggregate(r.Classifications())
	r.Notes = VitalNotes(p)
	return r, nil
}

package domain

import (
	"fmt"
	"math"
)

// IndicatorKind identifies a WHO growth indicator.
type IndicatorKind string

// Supported growth indicators.
const (
	WeightForAge       IndicatorKind = "WEIGHT_FOR_AGE"
	LengthHeightForAge IndicatorKind = "LENGTH_HEIGHT_FOR_AGE"
	WeightForLength    IndicatorKind = "WEIGHT_FOR_LENGTH"
	WeightForHeight    IndicatorKind = "WEIGHT_FOR_HEIGHT"
	BMIForAge          IndicatorKind = "BMI_FOR_AGE"
)

// IndicatorKinds lists every indicator in evaluation order.
var IndicatorKinds = []IndicatorKind{
	WeightForAge,
	LengthHeightForAge,
	WeightForLength,
	WeightForHeight,
	BMIForAge,
}

// Valid reports whether k is one of the known indicators.
func (k IndicatorKind) Valid() bool {
	switch k {
	case WeightForAge, LengthHeightForAge, WeightForLength, WeightForHeight, BMIForAge:
		return true
	default:
		return false
	}
}

// Unit returns the unit a measurement of this indicator is expressed in.
func (k IndicatorKind) Unit() Unit {
	switch k {
	case LengthHeightForAge:
		return UnitCentimeter
	case BMIForAge:
		return UnitKgPerM2
	default:
		return UnitKilogram
	}
}

// Sex selects the reference population.
type Sex string

// Supported sex values.
const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether s is a supported sex value.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Unit is the physical unit of a measurement.
type Unit string

// Measurement units.
const (
	UnitKilogram   Unit = "kg"
	UnitCentimeter Unit = "cm"
	UnitKgPerM2    Unit = "kg/m2"
)

// Measurement is a single raw biometric reading for one indicator.
type Measurement struct {
	Kind  IndicatorKind `json:"kind"`
	Value float64       `json:"value"`
	Unit  Unit          `json:"unit"`
}

// NewMeasurement creates a measurement in the indicator's native unit.
// Returns an error if validation fails.
func NewMeasurement(kind IndicatorKind, value float64) (Measurement, error) {
	m := Measurement{Kind: kind, Value: value, Unit: kind.Unit()}
	if err := m.Validate(); err != nil {
		return Measurement{}, err
	}
	return m, nil
}

// Validate checks that the measurement refers to a known indicator, carries
// the indicator's unit and holds a finite positive value.
func (m Measurement) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidIndicator, m.Kind)
	}
	if m.Unit != m.Kind.Unit() {
		return fmt.Errorf("%w: unit %q does not match %s", ErrInvalidMeasurement, m.Unit, m.Kind)
	}
	if !finite(m.Value) || m.Value <= 0 {
		return fmt.Errorf("%w: value must be a positive number", ErrInvalidMeasurement)
	}
	return nil
}

// ChildProfile holds everything measured for a child at one visit.
// TemperatureC and HeartRateBpm are optional vital signs.
type ChildProfile struct {
	Sex          Sex      `json:"sex"`
	AgeDays      int      `json:"age_days"`
	WeightKg     float64  `json:"weight_kg"`
	HeightCm     float64  `json:"height_cm"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	HeartRateBpm *int     `json:"heart_rate_bpm,omitempty"`
}

// Validate checks the profile for values no real measurement could produce.
func (p ChildProfile) Validate() error {
	if !p.Sex.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSex, p.Sex)
	}
	if p.AgeDays < 0 {
		return fmt.Errorf("%w: age cannot be negative", ErrInvalidMeasurement)
	}
	if !finite(p.WeightKg) || p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidMeasurement)
	}
	if !finite(p.HeightCm) || p.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalidMeasurement)
	}
	if p.TemperatureC != nil && (!finite(*p.TemperatureC) || *p.TemperatureC < 25 || *p.TemperatureC > 45) {
		return fmt.Errorf("%w: temperature out of range", ErrInvalidMeasurement)
	}
	if p.HeartRateBpm != nil && (*p.HeartRateBpm <= 0 || *p.HeartRateBpm > 300) {
		return fmt.Errorf("%w: heart rate out of range", ErrInvalidMeasurement)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BMI returns the body-mass index computed from weight and height.
func (p ChildProfile) BMI() float64 {
	h := p.HeightCm / 100
	return p.WeightKg / (h * h)
}

package growth

import (
	"fmt"
	"math"

	"github.com/mydudu/screening-api/internal/domain"
)

// MaxAbsZ is the largest |z| accepted as a plausible measurement. Anything
// beyond it is treated as a measuring or data-entry error.
const MaxAbsZ = 5.0

// Category is the clinical label assigned to a z-score.
type Category string

// Classification categories.
const (
	CategoryNormal              Category = "normal"
	CategoryInvalid             Category = "invalid"
	CategorySevereShort         Category = "severe-short"
	CategoryShort               Category = "short"
	CategorySevereWasted        Category = "severe-wasted"
	CategoryWasted              Category = "wasted"
	CategoryOverweight          Category = "overweight"
	CategoryObese               Category = "obese"
	CategorySeverelyUnderweight Category = "severely-underweight"
	CategoryUnderweight         Category = "underweight"
)

// Severity is the display tier of a category.
type Severity string

// Severity tiers.
const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
	SeverityNeutral Severity = "neutral"
)

// Severity colors.
const (
	ColorSuccess = "#22c55e"
	ColorWarning = "#eab308"
	ColorDanger  = "#ef4444"
	ColorNeutral = "#cbd5e1"
)

// Rank orders severities for aggregation: danger > warning > neutral > success.
func (s Severity) Rank() int {
	switch s {
	case SeverityDanger:
		return 3
	case SeverityWarning:
		return 2
	case SeverityNeutral:
		return 1
	default:
		return 0
	}
}

// Color returns the fixed hex color of the severity tier.
func (s Severity) Color() string {
	switch s {
	case SeverityDanger:
		return ColorDanger
	case SeverityWarning:
		return ColorWarning
	case SeveritySuccess:
		return ColorSuccess
	default:
		return ColorNeutral
	}
}

// Classification is the clinical reading of one indicator.
type Classification struct {
	Indicator      domain.IndicatorKind `json:"indicator"`
	Category       Category             `json:"category"`
	Severity       Severity             `json:"severity"`
	Color          string               `json:"color"`
	Explanation    string               `json:"explanation"`
	Recommendation string               `json:"recommendation"`
}

// IsNormal reports whether the indicator needs no attention.
func (c Classification) IsNormal() bool {
	return c.Category == CategoryNormal
}

type categoryInfo struct {
	severity       Severity
	explanation    string
	recommendation string
}

var categories = map[Category]categoryInfo{
	CategoryNormal: {
		SeveritySuccess,
		"Within the expected range for the child's age and sex.",
		"Keep up balanced nutrition and routine monthly weighing.",
	},
	CategoryInvalid: {
		SeverityNeutral,
		"The measurement could not be compared with the reference.",
		"Measure again and check the recorded age, weight and height.",
	},
	CategorySevereShort: {
		SeverityDanger,
		"Height is far below the standard for age (severe stunting).",
		"Refer to a pediatrician for evaluation of chronic undernutrition.",
	},
	CategoryShort: {
		SeverityWarning,
		"Height is below the standard for age (stunting).",
		"Review diet quality and monitor height every month.",
	},
	CategorySevereWasted: {
		SeverityDanger,
		"Weight is far below the standard for height (severe wasting).",
		"Refer immediately to a health facility for acute malnutrition care.",
	},
	CategoryWasted: {
		SeverityWarning,
		"Weight is below the standard for height (wasting).",
		"Increase energy and protein intake and re-weigh within two weeks.",
	},
	CategoryOverweight: {
		SeverityWarning,
		"Weight is above the standard for height.",
		"Review eating habits and limit sugary and fatty foods.",
	},
	CategoryObese: {
		SeverityDanger,
		"Weight is far above the standard for height (obesity).",
		"Consult a doctor to plan a healthy weight programme.",
	},
	CategorySeverelyUnderweight: {
		SeverityDanger,
		"Weight is far below the standard for age (severely underweight).",
		"Refer to a pediatrician promptly.",
	},
	CategoryUnderweight: {
		SeverityWarning,
		"Weight is below the standard for age (underweight).",
		"Evaluate feeding and monitor weight monthly.",
	},
}

type family int

const (
	familyStunting family = iota
	familyWasting
	familyUnderweight
)

func familyOf(kind domain.IndicatorKind) (family, error) {
	switch kind {
	case domain.LengthHeightForAge:
		return familyStunting, nil
	case domain.WeightForLength, domain.WeightForHeight, domain.BMIForAge:
		return familyWasting, nil
	case domain.WeightForAge:
		return familyUnderweight, nil
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidIndicator, kind)
	}
}

// Classify maps a z-score to the category of the indicator's family. A nil,
// NaN or implausible (|z| > MaxAbsZ) score is classified as invalid, never
// as normal. An unknown indicator kind is an error.
func Classify(z *float64, kind domain.IndicatorKind) (Classification, error) {
	fam, err := familyOf(kind)
	if err != nil {
		return Classification{}, err
	}

	if z == nil || math.IsNaN(*z) || math.Abs(*z) > MaxAbsZ {
		return newClassification(kind, CategoryInvalid), nil
	}

	v := *z
	var cat Category
	switch fam {
	case familyStunting:
		switch {
		case v < -3:
			cat = CategorySevereShort
		case v < -2:
			cat = CategoryShort
		default:
			cat = CategoryNormal
		}
	case familyWasting:
		switch {
		case v < -3:
			cat = CategorySevereWasted
		case v < -2:
			cat = CategoryWasted
		case v > 3:
			cat = CategoryObese
		case v > 2:
			cat = CategoryOverweight
		default:
			cat = CategoryNormal
		}
	case familyUnderweight:
		switch {
		case v < -3:
			cat = CategorySeverelyUnderweight
		case v < -2:
			cat = CategoryUnderweight
		default:
			cat = CategoryNormal
		}
	}

	return newClassification(kind, cat), nil
}

func newClassification(kind domain.IndicatorKind, cat Category) Classification {
	info := categories[cat]
	return Classification{
		Indicator:      kind,
		Category:       cat,
		Severity:       info.severity,
		Color:          info.severity.Color(),
		Explanation:    info.explanation,
		Recommendation: info.recommendation,
	}
}

// Summary is the combined reading of several indicators.
type Summary struct {
	Severity    Severity        `json:"severity"`
	Color       string          `json:"color"`
	MainConcern *Classification `json:"main_concern,omitempty"`
}

// Aggregate combines classifications evaluated together. The worst severity
// wins, and the main concern is the worst non-normal indicator, the earliest
// one on ties. An empty input aggregates to neutral.
func Aggregate(cs []Classification) Summary {
	if len(cs) == 0 {
		return Summary{Severity: SeverityNeutral, Color: ColorNeutral}
	}

	worst := SeveritySuccess
	var concern *Classification
	for i := range cs {
		c := cs[i]
		if c.Severity.Rank() > worst.Rank() {
			worst = c.Severity
		}
		if c.IsNormal() {
			continue
		}
		if concern == nil || c.Severity.Rank() > concern.Severity.Rank() {
			concern = &c
		}
	}

	return Summary{Severity: worst, Color: worst.Color(), MainConcern: concern}
}

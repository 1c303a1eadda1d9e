package growth

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mydudu/screening-api/internal/domain"
)

// Reference table errors.
var (
	ErrEmptyTable     = errors.New("reference table has no rows")
	ErrUnsortedTable  = errors.New("reference table keys must be strictly increasing")
	ErrTableNotFound  = errors.New("no reference table for indicator and sex")
	ErrDuplicateTable = errors.New("duplicate reference table")
)

// Axis is the quantity a reference table is keyed by.
type Axis string

// Reference table axes.
const (
	AxisAgeDays  Axis = "age_days"
	AxisLengthCm Axis = "length_cm"
)

// AxisFor returns the key axis used by an indicator.
func AxisFor(kind domain.IndicatorKind) (Axis, error) {
	switch kind {
	case domain.WeightForAge, domain.LengthHeightForAge, domain.BMIForAge:
		return AxisAgeDays, nil
	case domain.WeightForLength, domain.WeightForHeight:
		return AxisLengthCm, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidIndicator, kind)
	}
}

// Row is one line of a reference table.
type Row struct {
	Key float64 `json:"key" yaml:"key"`
	LMS `yaml:",inline"`
}

// ReferenceTable holds the LMS rows of one indicator for one sex, ordered by key.
type ReferenceTable struct {
	Indicator domain.IndicatorKind `json:"indicator"`
	Sex       domain.Sex           `json:"sex"`
	Rows      []Row                `json:"rows"`
}

// Validate checks that the table is non-empty, strictly ordered and that every
// row carries usable parameters.
func (t ReferenceTable) Validate() error {
	if _, err := AxisFor(t.Indicator); err != nil {
		return err
	}
	if !t.Sex.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSex, t.Sex)
	}
	if len(t.Rows) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrEmptyTable, t.Indicator, t.Sex)
	}
	for i, r := range t.Rows {
		if err := r.LMS.Validate(); err != nil {
			return fmt.Errorf("%s/%s row %d: %w", t.Indicator, t.Sex, i, err)
		}
		if i > 0 && r.Key <= t.Rows[i-1].Key {
			return fmt.Errorf("%w: %s/%s row %d", ErrUnsortedTable, t.Indicator, t.Sex, i)
		}
	}
	return nil
}

// Lookup returns the parameters at key, linearly interpolating L, M and S
// between the bracketing rows. Keys outside the table take the nearest edge row.
func (t ReferenceTable) Lookup(key float64) (LMS, error) {
	n := len(t.Rows)
	if n == 0 {
		return LMS{}, ErrEmptyTable
	}
	if key <= t.Rows[0].Key {
		return t.Rows[0].LMS, nil
	}
	if key >= t.Rows[n-1].Key {
		return t.Rows[n-1].LMS, nil
	}

	// First row with Key >= key; guaranteed to be in (0, n-1].
	i := sort.Search(n, func(i int) bool { return t.Rows[i].Key >= key })
	hi := t.Rows[i]
	if hi.Key == key {
		return hi.LMS, nil
	}
	lo := t.Rows[i-1]

	f := (key - lo.Key) / (hi.Key - lo.Key)
	return LMS{
		L: lo.L + (hi.L-lo.L)*f,
		M: lo.M + (hi.M-lo.M)*f,
		S: lo.S + (hi.S-lo.S)*f,
	}, nil
}

type tableKey struct {
	kind domain.IndicatorKind
	sex  domain.Sex
}

// ReferenceSet indexes reference tables by indicator and sex. It is immutable
// once built and safe for concurrent use.
type ReferenceSet struct {
	tables map[tableKey]ReferenceTable
}

// NewReferenceSet validates and indexes the given tables.
func NewReferenceSet(tables []ReferenceTable) (*ReferenceSet, error) {
	set := &ReferenceSet{tables: make(map[tableKey]ReferenceTable, len(tables))}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		k := tableKey{t.Indicator, t.Sex}
		if _, dup := set.tables[k]; dup {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateTable, t.Indicator, t.Sex)
		}
		rows := make([]Row, len(t.Rows))
		copy(rows, t.Rows)
		t.Rows = rows
		set.tables[k] = t
	}
	return set, nil
}

// Table returns the table for an indicator and sex.
func (s *ReferenceSet) Table(kind domain.IndicatorKind, sex domain.Sex) (ReferenceTable, error) {
	t, ok := s.tables[tableKey{kind, sex}]
	if !ok {
		return ReferenceTable{}, fmt.Errorf("%w: %s/%s", ErrTableNotFound, kind, sex)
	}
	return t, nil
}

// Lookup returns the interpolated parameters for an indicator and sex at key.
func (s *ReferenceSet) Lookup(kind domain.IndicatorKind, sex domain.Sex, key float64) (LMS, error) {
	t, err := s.Table(kind, sex)
	if err != nil {
		return LMS{}, err
	}
	return t.Lookup(key)
}

// Len returns the number of tables in the set.
func (s *ReferenceSet) Len() int {
	return len(s.tables)
}

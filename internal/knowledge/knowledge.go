// Package knowledge loads the reference data a screening needs: diseases and
// their priors, symptom likelihood tables, the ordered red-flag list and the
// WHO growth reference tables. A default knowledge base is embedded in the
// binary; deployments may replace it with a YAML file of the same shape.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	"github.com/mydudu/screening-api/internal/domain/triage"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultSource names the embedded knowledge base.
const DefaultSource = "embedded:default.yaml"

// ErrInvalidKnowledgeFile is returned when a knowledge file cannot be parsed
// or fails validation.
var ErrInvalidKnowledgeFile = errors.New("invalid knowledge file")

var validate = validator.New()

type yamlFile struct {
	Version  int           `yaml:"version" validate:"eq=1"`
	Diseases []yamlDisease `yaml:"diseases" validate:"required,min=1,dive"`
	Symptoms []yamlSymptom `yaml:"symptoms" validate:"required,min=1,dive"`
	RedFlags []yamlFlag    `yaml:"red_flags" validate:"dive"`
	Growth   []yamlTable   `yaml:"growth" validate:"dive"`
}

type yamlDisease struct {
	ID          string  `yaml:"id" validate:"required"`
	Name        string  `yaml:"name" validate:"required"`
	Prior       float64 `yaml:"prior" validate:"gt=0"`
	Urgent      bool    `yaml:"urgent"`
	Description string  `yaml:"description"`
}

type yamlSymptom struct {
	ID          string             `yaml:"id" validate:"required"`
	Question    string             `yaml:"question" validate:"required"`
	Layman      string             `yaml:"layman"`
	Likelihoods map[string]float64 `yaml:"likelihoods" validate:"dive,gte=0,lte=1"`
	No          map[string]float64 `yaml:"no" validate:"dive,gte=0,lte=1"`
}

type yamlFlag struct {
	ID       string `yaml:"id" validate:"required"`
	Question string `yaml:"question" validate:"required"`
	Reason   string `yaml:"reason" validate:"required"`
}

type yamlTable struct {
	Indicator string      `yaml:"indicator" validate:"required"`
	Sex       string      `yaml:"sex" validate:"required,oneof=male female"`
	Rows      [][]float64 `yaml:"rows" validate:"required,min=1,dive,len=4"`
}

// Bundle is a loaded, validated knowledge base.
type Bundle struct {
	Source     string
	KB         *inference.KnowledgeBase
	RedFlags   []triage.RedFlag
	References *growth.ReferenceSet
}

// Default returns the embedded knowledge base.
func Default() (*Bundle, error) {
	return parse(DefaultSource, defaultYAML)
}

// Load reads a knowledge base from path. An empty path loads the embedded
// default.
func Load(path string) (*Bundle, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge file %s: %w", path, err)
	}
	return parse(path, data)
}

// Parse builds a knowledge base from YAML bytes.
func Parse(data []byte) (*Bundle, error) {
	return parse("inline", data)
}

func parse(source string, data []byte) (*Bundle, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKnowledgeFile, source, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKnowledgeFile, source, err)
	}

	symptoms, err := mapSymptoms(f.Symptoms)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidKnowledgeFile, source, err)
	}
	kb, err := inference.NewKnowledgeBase(mapDiseases(f.Diseases), symptoms)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidKnowledgeFile, source, err)
	}

	flags := make([]triage.RedFlag, len(f.RedFlags))
	for i, rf := range f.RedFlags {
		flags[i] = triage.RedFlag{ID: rf.ID, Question: rf.Question, Reason: rf.Reason}
	}
	if err := triage.ValidateFlags(flags); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidKnowledgeFile, source, err)
	}

	refs, err := growth.NewReferenceSet(mapTables(f.Growth))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidKnowledgeFile, source, err)
	}

	return &Bundle{Source: source, KB: kb, RedFlags: flags, References: refs}, nil
}

func mapDiseases(in []yamlDisease) []inference.Disease {
	out := make([]inference.Disease, len(in))
	for i, d := range in {
		out[i] = inference.Disease{
			ID:          d.ID,
			Name:        d.Name,
			Prior:       d.Prior,
			Urgent:      d.Urgent,
			Description: d.Description,
		}
	}
	return out
}

// mapSymptoms pairs each symptom's yes likelihoods with its optional no
// overrides. A no entry without a matching likelihood is an error.
func mapSymptoms(in []yamlSymptom) ([]inference.Symptom, error) {
	out := make([]inference.Symptom, len(in))
	for i, s := range in {
		for _, id := range slices.Sorted(maps.Keys(s.No)) {
			if _, ok := s.Likelihoods[id]; !ok {
				return nil, fmt.Errorf("symptom %q has a no likelihood for %q without a yes likelihood", s.ID, id)
			}
		}
		liks := make(map[string]inference.Likelihood, len(s.Likelihoods))
		for id, yes := range s.Likelihoods {
			no, ok := s.No[id]
			if !ok {
				no = 1 - yes
			}
			liks[id] = inference.Likelihood{Yes: yes, No: no}
		}
		out[i] = inference.Symptom{ID: s.ID, Question: s.Question, Layman: s.Layman, Likelihoods: liks}
	}
	return out, nil
}

func mapTables(in []yamlTable) []growth.ReferenceTable {
	out := make([]growth.ReferenceTable, len(in))
	for i, t := range in {
		rows := make([]growth.Row, len(t.Rows))
		for j, r := range t.Rows {
			rows[j] = growth.Row{Key: r[0], LMS: growth.LMS{L: r[1], M: r[2], S: r[3]}}
		}
		out[i] = growth.ReferenceTable{
			Indicator: domain.IndicatorKind(t.Indicator),
			Sex:       domain.Sex(t.Sex),
			Rows:      rows,
		}
	}
	return out
}

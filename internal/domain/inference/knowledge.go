package inference

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidKnowledgeBase is returned when diseases or symptoms are inconsistent.
var ErrInvalidKnowledgeBase = errors.New("invalid knowledge base")

// Disease is a candidate diagnosis with its prior probability.
type Disease struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Prior       float64 `json:"prior"`
	Urgent      bool    `json:"urgent"`
	Description string  `json:"description,omitempty"`
}

// Likelihood is the probability of each answer given a disease.
type Likelihood struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// Symptom is a yes/no question. The diseases it discriminates are the keys of
// Likelihoods; any other disease answers with the neutral likelihood.
type Symptom struct {
	ID          string                `json:"id"`
	Question    string                `json:"question"`
	Layman      string                `json:"layman,omitempty"`
	Likelihoods map[string]Likelihood `json:"likelihoods"`
}

// Discriminates returns the IDs of the diseases this symptom has likelihoods
// for, in knowledge-base order.
func (kb *KnowledgeBase) Discriminates(s Symptom) []string {
	var out []string
	for _, d := range kb.diseases {
		if _, ok := s.Likelihoods[d.ID]; ok {
			out = append(out, d.ID)
		}
	}
	return out
}

// KnowledgeBase is the immutable set of diseases and symptoms the engine
// reasons over. Order is significant: it fixes iteration order for sums and
// breaks question-selection ties.
type KnowledgeBase struct {
	diseases     []Disease
	symptoms     []Symptom
	diseaseIndex map[string]int
	symptomIndex map[string]int
}

// NewKnowledgeBase validates and indexes the given diseases and symptoms.
// The inputs are copied.
func NewKnowledgeBase(diseases []Disease, symptoms []Symptom) (*KnowledgeBase, error) {
	if len(diseases) == 0 {
		return nil, fmt.Errorf("%w: no diseases", ErrInvalidKnowledgeBase)
	}

	kb := &KnowledgeBase{
		diseases:     make([]Disease, len(diseases)),
		symptoms:     make([]Symptom, len(symptoms)),
		diseaseIndex: make(map[string]int, len(diseases)),
		symptomIndex: make(map[string]int, len(symptoms)),
	}
	copy(kb.diseases, diseases)

	for i, d := range diseases {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: disease %d has no id", ErrInvalidKnowledgeBase, i)
		}
		if _, dup := kb.diseaseIndex[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate disease %q", ErrInvalidKnowledgeBase, d.ID)
		}
		if !(d.Prior > 0) || math.IsInf(d.Prior, 0) {
			return nil, fmt.Errorf("%w: disease %q prior must be positive", ErrInvalidKnowledgeBase, d.ID)
		}
		kb.diseaseIndex[d.ID] = i
	}

	for i, s := range symptoms {
		if s.ID == "" || s.Question == "" {
			return nil, fmt.Errorf("%w: symptom %d needs an id and a question", ErrInvalidKnowledgeBase, i)
		}
		if _, dup := kb.symptomIndex[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate symptom %q", ErrInvalidKnowledgeBase, s.ID)
		}
		liks := make(map[string]Likelihood, len(s.Likelihoods))
		for did, l := range s.Likelihoods {
			if _, ok := kb.diseaseIndex[did]; !ok {
				return nil, fmt.Errorf("%w: symptom %q references unknown disease %q", ErrInvalidKnowledgeBase, s.ID, did)
			}
			if !inUnit(l.Yes) || !inUnit(l.No) {
				return nil, fmt.Errorf("%w: symptom %q likelihoods for %q must be in [0,1]", ErrInvalidKnowledgeBase, s.ID, did)
			}
			liks[did] = l
		}
		s.Likelihoods = liks
		kb.symptoms[i] = s
		kb.symptomIndex[s.ID] = i
	}

	return kb, nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Diseases returns the diseases in knowledge-base order.
func (kb *KnowledgeBase) Diseases() []Disease {
	out := make([]Disease, len(kb.diseases))
	copy(out, kb.diseases)
	return out
}

// Symptoms returns the symptoms in knowledge-base order.
func (kb *KnowledgeBase) Symptoms() []Symptom {
	out := make([]Symptom, len(kb.symptoms))
	copy(out, kb.symptoms)
	return out
}

// Disease returns the disease with the given ID.
func (kb *KnowledgeBase) Disease(id string) (Disease, bool) {
	i, ok := kb.diseaseIndex[id]
	if !ok {
		return Disease{}, false
	}
	return kb.diseases[i], true
}

// Symptom returns the symptom with the given ID.
func (kb *KnowledgeBase) Symptom(id string) (Symptom, bool) {
	i, ok := kb.symptomIndex[id]
	if !ok {
		return Symptom{}, false
	}
	return kb.symptoms[i], true
}

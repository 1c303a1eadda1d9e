package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParams(t *testing.T) {
	t.Parallel() // Enable parallel execution

	defaults := NewDefaultParams()
	assert.NoError(t, defaults.Validate())

	p := NewParams(ParamsConfig{ConfidenceThreshold: 0.9, ExplanationLimit: 5})
	assert.Equal(t, 0.9, p.ConfidenceThreshold)
	assert.Equal(t, 5, p.ExplanationLimit)
	assert.Equal(t, defaults.MinMargin, p.MinMargin)
	assert.Equal(t, defaults.ProbabilityFloor, p.ProbabilityFloor)
}

func TestParamsValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution

	testCases := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"threshold above one", func(p *Params) { p.ConfidenceThreshold = 1.2 }},
		{"negative margin", func(p *Params) { p.MinMargin = -0.1 }},
		{"zero floor", func(p *Params) { p.ProbabilityFloor = 0 }},
		{"huge floor", func(p *Params) { p.ProbabilityFloor = 0.5 }},
		{"plausibility of one", func(p *Params) { p.PlausibilityFloor = 1 }},
		{"negative gain", func(p *Params) { p.MinInformationGain = -1 }},
		{"zero explanation limit", func(p *Params) { p.ExplanationLimit = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			p := NewDefaultParams()
			tc.mutate(p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}

func TestNewKnowledgeBaseValidation(t *testing.T) {
	t.Parallel() // Enable parallel execution

	d := []Disease{{ID: "a", Prior: 0.5}, {ID: "b", Prior: 0.5}}

	testCases := []struct {
		name     string
		diseases []Disease
		symptoms []Symptom
	}{
		{"no diseases", nil, nil},
		{"duplicate disease", []Disease{{ID: "a", Prior: 1}, {ID: "a", Prior: 1}}, nil},
		{"zero prior", []Disease{{ID: "a", Prior: 0}}, nil},
		{"missing question", d, []Symptom{{ID: "s"}}},
		{"duplicate symptom", d, []Symptom{{ID: "s", Question: "q"}, {ID: "s", Question: "q"}}},
		{"unknown disease", d, []Symptom{{ID: "s", Question: "q", Likelihoods: map[string]Likelihood{"z": {Yes: 0.5, No: 0.5}}}}},
		{"likelihood out of range", d, []Symptom{{ID: "s", Question: "q", Likelihoods: map[string]Likelihood{"a": {Yes: 1.5, No: 0}}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			_, err := NewKnowledgeBase(tc.diseases, tc.symptoms)
			assert.ErrorIs(t, err, ErrInvalidKnowledgeBase)
		})
	}
}

func TestKnowledgeBaseIsCopied(t *testing.T) {
	t.Parallel() // Enable parallel execution

	diseases := []Disease{{ID: "a", Name: "A", Prior: 1}}
	liks := map[string]Likelihood{"a": {Yes: 0.7, No: 0.3}}
	kb, err := NewKnowledgeBase(diseases, []Symptom{{ID: "s", Question: "q", Likelihoods: liks}})
	assert.NoError(t, err)

	diseases[0].Name = "changed"
	liks["a"] = Likelihood{Yes: 0, No: 1}

	d, _ := kb.Disease("a")
	assert.Equal(t, "A", d.Name)
	s, _ := kb.Symptom("s")
	assert.Equal(t, 0.7, s.Likelihoods["a"].Yes)
	assert.Equal(t, []string{"a"}, kb.Discriminates(s))
}

package inference

import "fmt"

// AnswerValue is a caregiver's answer to a symptom question.
type AnswerValue string

// Answer values.
const (
	AnswerYes      AnswerValue = "yes"
	AnswerNo       AnswerValue = "no"
	AnswerDontKnow AnswerValue = "dont_know"
)

// Valid reports whether v is a known answer value.
func (v AnswerValue) Valid() bool {
	switch v {
	case AnswerYes, AnswerNo, AnswerDontKnow:
		return true
	default:
		return false
	}
}

// ParseAnswerValue converts a string into an AnswerValue.
func ParseAnswerValue(s string) (AnswerValue, error) {
	v := AnswerValue(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
	}
	return v, nil
}

// Answer is one entry in the answer history.
type Answer struct {
	SymptomID string      `json:"symptom_id"`
	Value     AnswerValue `json:"value"`
}

// Status is the progress of an inference run.
type Status string

// Inference statuses. Diagnosed and inconclusive are terminal.
const (
	StatusActive       Status = "active"
	StatusDiagnosed    Status = "diagnosed"
	StatusInconclusive Status = "inconclusive"
)

// Terminal reports whether no further answers are accepted.
func (s Status) Terminal() bool {
	return s == StatusDiagnosed || s == StatusInconclusive
}

// Hypothesis is one disease and its current probability.
type Hypothesis struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Prior       float64 `json:"prior"`
	Probability float64 `json:"probability"`
	Urgent      bool    `json:"urgent"`
}

// State is the full, serializable state of an inference run. Hypotheses are
// kept in knowledge-base order; Answers is append-only and a re-answer is a
// new entry.
type State struct {
	Status     Status       `json:"status"`
	Hypotheses []Hypothesis `json:"hypotheses"`
	Answers    []Answer     `json:"answers"`
	Entropy    float64      `json:"entropy"`
}

// Probabilities returns the distribution keyed by disease ID.
func (s State) Probabilities() map[string]float64 {
	out := make(map[string]float64, len(s.Hypotheses))
	for _, h := range s.Hypotheses {
		out[h.ID] = h.Probability
	}
	return out
}

// EffectiveAnswers returns the latest answer per symptom, ordered by the
// position of that latest entry in the history.
func (s State) EffectiveAnswers() []Answer {
	last := make(map[string]int, len(s.Answers))
	for i, a := range s.Answers {
		last[a.SymptomID] = i
	}

	out := make([]Answer, 0, len(last))
	for i, a := range s.Answers {
		if last[a.SymptomID] == i {
			out = append(out, a)
		}
	}
	return out
}

// Answered reports whether the symptom has any answer in the history.
func (s State) Answered(symptomID string) bool {
	for _, a := range s.Answers {
		if a.SymptomID == symptomID {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := State{Status: s.Status, Entropy: s.Entropy}
	out.Hypotheses = append([]Hypothesis(nil), s.Hypotheses...)
	out.Answers = append([]Answer{}, s.Answers...)
	return out
}

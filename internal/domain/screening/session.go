package screening

import (
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	"github.com/mydudu/screening-api/internal/domain/triage"
)

// HistoryEntry is one answered question in the audit trail.
type HistoryEntry struct {
	Step       int          `json:"step"`
	Phase      domain.Phase `json:"phase"`
	QuestionID string       `json:"question_id"`
	Question   string       `json:"question"`
	AnswerYes  bool         `json:"answer_yes"`
	Value      string       `json:"value"`
}

// Session is the complete, serializable state of one screening. The
// controller never mutates a Session in place; every operation returns a
// new value.
type Session struct {
	Phase     domain.Phase             `json:"phase"`
	Growth    *growth.Report           `json:"growth,omitempty"`
	Triage    triage.State             `json:"triage"`
	Inference *inference.State         `json:"inference,omitempty"`
	History   []HistoryEntry           `json:"history"`
	Outcome   *domain.ScreeningOutcome `json:"outcome,omitempty"`
}

func (s Session) clone() Session {
	out := s
	out.History = append([]HistoryEntry{}, s.History...)
	out.Triage.Answers = append([]bool{}, s.Triage.Answers...)
	if s.Inference != nil {
		inf := *s.Inference
		out.Inference = &inf
	}
	return out
}

func (s *Session) record(phase domain.Phase, id, question string, value string) {
	s.History = append(s.History, HistoryEntry{
		Step:       len(s.History) + 1,
		Phase:      phase,
		QuestionID: id,
		Question:   question,
		AnswerYes:  value == string(inference.AnswerYes),
		Value:      value,
	})
}

// PromptKind tells the caller which answer operation a prompt expects.
type PromptKind string

// Prompt kinds.
const (
	PromptRedFlag PromptKind = "red_flag"
	PromptSymptom PromptKind = "symptom"
)

// Prompt is the next question to put to the caregiver.
type Prompt struct {
	Kind     PromptKind `json:"kind"`
	ID       string     `json:"id"`
	Question string     `json:"question"`
	Layman   string     `json:"layman,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Step     int        `json:"step"`
}

package knowledge

import (
	"github.com/mydudu/screening-api/internal/domain/inference"
	"github.com/mydudu/screening-api/internal/domain/triage"
)

// SymptomSummary describes a symptom without its likelihood table.
type SymptomSummary struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Layman        string   `json:"layman,omitempty"`
	Discriminates []string `json:"discriminates"`
}

// Summary is the public view of a knowledge base.
type Summary struct {
	Source   string              `json:"source"`
	Diseases []inference.Disease `json:"diseases"`
	Symptoms []SymptomSummary    `json:"symptoms"`
	RedFlags []triage.RedFlag    `json:"red_flags"`
	Tables   int                 `json:"growth_tables"`
}

// Summary returns the public view of the bundle.
func (b *Bundle) Summary() Summary {
	symptoms := b.KB.Symptoms()
	out := Summary{
		Source:   b.Source,
		Diseases: b.KB.Diseases(),
		Symptoms: make([]SymptomSummary, len(symptoms)),
		RedFlags: append([]triage.RedFlag(nil), b.RedFlags...),
		Tables:   b.References.Len(),
	}
	for i, s := range symptoms {
		out.Symptoms[i] = SymptomSummary{
			ID:            s.ID,
			Question:      s.Question,
			Layman:        s.Layman,
			Discriminates: b.KB.Discriminates(s),
		}
	}
	return out
}

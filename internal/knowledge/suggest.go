package knowledge

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 3

// SuggestSymptoms returns known symptom IDs close to an unknown one, closest
// first. Substring matches count as distance zero.
func (b *Bundle) SuggestSymptoms(id string) []string {
	symptoms := b.KB.Symptoms()
	ids := make([]string, len(symptoms))
	for i, s := range symptoms {
		ids[i] = s.ID
	}
	return suggest(id, ids)
}

func suggest(input string, candidates []string) []string {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return nil
	}

	limit := len(needle) / 3
	if limit < 2 {
		limit = 2
	}

	type match struct {
		id   string
		dist int
		pos  int
	}
	var matches []match
	for i, c := range candidates {
		lc := strings.ToLower(c)
		dist := levenshtein.ComputeDistance(needle, lc)
		if strings.Contains(lc, needle) || strings.Contains(needle, lc) {
			dist = 0
		}
		if dist <= limit {
			matches = append(matches, match{c, dist, i})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].pos < matches[j].pos
	})

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.id
	}
	return out
}

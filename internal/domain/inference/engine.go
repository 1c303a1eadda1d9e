// Package inference maintains a probability distribution over candidate
// diseases, updates it with Bayes' rule as symptom answers arrive, selects
// the most informative next question and decides when to stop.
//
// The Engine is stateless: every call takes a State and returns a new one,
// so callers own persistence and a single Engine can serve many sessions
// concurrently.
package inference

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Engine errors.
var (
	// ErrUnknownSymptom is returned when an answer names a symptom that is not
	// in the knowledge base.
	ErrUnknownSymptom = errors.New("unknown symptom")

	// ErrInvalidAnswer is returned for an answer value other than yes, no or dont_know.
	ErrInvalidAnswer = errors.New("invalid answer value")

	// ErrInferenceFinished is returned when answering a terminal state.
	ErrInferenceFinished = errors.New("inference already finished")

	// ErrInvalidState is returned when a state does not match the knowledge base.
	ErrInvalidState = errors.New("inference state does not match knowledge base")
)

// Engine applies a knowledge base and parameters to inference states.
type Engine struct {
	kb     *KnowledgeBase
	params *Params
}

// NewEngine creates an engine. A nil params uses the defaults.
func NewEngine(kb *KnowledgeBase, params *Params) (*Engine, error) {
	if kb == nil {
		return nil, fmt.Errorf("%w: knowledge base cannot be nil", ErrInvalidKnowledgeBase)
	}
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{kb: kb, params: params}, nil
}

// KnowledgeBase returns the engine's knowledge base.
func (e *Engine) KnowledgeBase() *KnowledgeBase {
	return e.kb
}

// Params returns a copy of the engine's parameters.
func (e *Engine) Params() Params {
	return *e.params
}

// Start returns a fresh state with the priors normalized to sum to 1.
func (e *Engine) Start() State {
	probs := e.priors()
	s := State{
		Status:     StatusActive,
		Hypotheses: make([]Hypothesis, len(e.kb.diseases)),
		Answers:    []Answer{},
		Entropy:    entropy(probs),
	}
	for i, d := range e.kb.diseases {
		s.Hypotheses[i] = Hypothesis{
			ID:          d.ID,
			Name:        d.Name,
			Prior:       probs[i],
			Probability: probs[i],
			Urgent:      d.Urgent,
		}
	}
	return s
}

func (e *Engine) priors() []float64 {
	p := make([]float64, len(e.kb.diseases))
	for i, d := range e.kb.diseases {
		p[i] = d.Prior
	}
	normalize(p)
	return p
}

// Assess records an answer and returns the updated state. The distribution
// is recomputed from the priors over the effective answers, so a re-answer
// replaces the earlier one instead of compounding it. On error the input
// state is returned unchanged.
func (e *Engine) Assess(s State, a Answer) (State, error) {
	if err := e.checkState(s); err != nil {
		return s, err
	}
	if s.Status.Terminal() {
		return s, ErrInferenceFinished
	}
	if _, ok := e.kb.Symptom(a.SymptomID); !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownSymptom, a.SymptomID)
	}
	if !a.Value.Valid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidAnswer, a.Value)
	}

	next := s.clone()
	next.Answers = append(next.Answers, a)

	probs := e.posterior(next.EffectiveAnswers())
	for i := range next.Hypotheses {
		next.Hypotheses[i].Probability = probs[i]
	}
	next.Entropy = entropy(probs)
	next.Status = e.status(next)

	return next, nil
}

// posterior replays the answers from the priors. Each step multiplies by the
// likelihoods and normalizes, then lifts probabilities below the floor and
// normalizes again. An answer every disease rules out carries no evidence and
// leaves the distribution as it was.
func (e *Engine) posterior(answers []Answer) []float64 {
	p := e.priors()
	prev := make([]float64, len(p))
	for _, a := range answers {
		sym := e.kb.symptoms[e.kb.symptomIndex[a.SymptomID]]
		copy(prev, p)
		for i, d := range e.kb.diseases {
			p[i] *= e.likelihood(sym, d.ID, a.Value)
		}
		if !normalize(p) {
			copy(p, prev)
			continue
		}
		for i := range p {
			if p[i] < e.params.ProbabilityFloor {
				p[i] = e.params.ProbabilityFloor
			}
		}
		normalize(p)
	}
	return p
}

// likelihood returns P(value | disease) for a symptom.
func (e *Engine) likelihood(sym Symptom, diseaseID string, v AnswerValue) float64 {
	l, ok := sym.Likelihoods[diseaseID]
	if !ok || v == AnswerDontKnow {
		return e.params.NeutralLikelihood
	}
	if v == AnswerYes {
		return l.Yes
	}
	return l.No
}

// status applies the stopping rule to a freshly updated state.
func (e *Engine) status(s State) Status {
	probs := hypothesisProbs(s)
	top := e.kb.diseaseIndex[TopDisease(s.Probabilities())]

	if probs[top] >= e.params.ConfidenceThreshold &&
		probs[top]-runnerUp(probs, top) >= e.params.MinMargin &&
		e.hasYesSupport(s, top, probs) {
		return StatusDiagnosed
	}

	s.Status = StatusActive
	if _, ok := e.NextQuestion(s); !ok {
		return StatusInconclusive
	}
	return StatusActive
}

// hasYesSupport reports whether at least one effective "yes" answer favours
// the winner over the rest. A winner carried by "no" answers alone is only
// the least excluded disease, not a diagnosis.
func (e *Engine) hasYesSupport(s State, winner int, probs []float64) bool {
	for _, a := range s.EffectiveAnswers() {
		if a.Value == AnswerYes && e.logLikelihoodRatio(a, winner, probs) > 0 {
			return true
		}
	}
	return false
}

// logLikelihoodRatio compares how likely the answer is under the winner with
// how likely it is under the other diseases weighted by their probability.
func (e *Engine) logLikelihoodRatio(a Answer, winner int, probs []float64) float64 {
	if a.Value == AnswerDontKnow {
		return 0
	}
	sym := e.kb.symptoms[e.kb.symptomIndex[a.SymptomID]]

	var rest, weight float64
	for i, d := range e.kb.diseases {
		if i == winner {
			continue
		}
		rest += probs[i] * e.likelihood(sym, d.ID, a.Value)
		weight += probs[i]
	}
	if weight <= 0 {
		return 0
	}
	rest /= weight

	pw := e.likelihood(sym, e.kb.diseases[winner].ID, a.Value)
	if pw <= 0 {
		return math.Inf(-1)
	}
	if rest <= 0 {
		return math.Inf(1)
	}
	return math.Log(pw / rest)
}

// NextQuestion returns the unanswered symptom with the highest expected
// information gain over the plausible diseases. Ties go to the symptom that
// comes first in the knowledge base. It returns false when the state is
// terminal, nothing is left to ask, or no question is worth asking.
func (e *Engine) NextQuestion(s State) (*Symptom, bool) {
	if s.Status.Terminal() || e.checkState(s) != nil {
		return nil, false
	}

	probs := hypothesisProbs(s)
	candidates := make([]int, 0, len(probs))
	var mass float64
	for i, p := range probs {
		if p >= e.params.PlausibilityFloor {
			candidates = append(candidates, i)
			mass += p
		}
	}
	if len(candidates) < 2 || mass <= 0 {
		return nil, false
	}

	q := make([]float64, len(candidates))
	for j, i := range candidates {
		q[j] = probs[i] / mass
	}
	base := entropy(q)

	best := -1
	bestGain := math.Inf(-1)
	for k, sym := range e.kb.symptoms {
		if s.Answered(sym.ID) {
			continue
		}
		gain := base - e.expectedEntropy(sym, candidates, q)
		if gain > bestGain {
			best, bestGain = k, gain
		}
	}

	if best < 0 || bestGain < e.params.MinInformationGain {
		return nil, false
	}
	sym := e.kb.symptoms[best]
	return &sym, true
}

// expectedEntropy is the entropy remaining after asking sym, averaged over
// the yes and no outcomes.
func (e *Engine) expectedEntropy(sym Symptom, candidates []int, q []float64) float64 {
	yes := make([]float64, len(candidates))
	no := make([]float64, len(candidates))
	var pYes, pNo float64
	for j, i := range candidates {
		id := e.kb.diseases[i].ID
		yes[j] = q[j] * e.likelihood(sym, id, AnswerYes)
		no[j] = q[j] * e.likelihood(sym, id, AnswerNo)
		pYes += yes[j]
		pNo += no[j]
	}

	total := pYes + pNo
	if total <= 0 {
		return entropy(q)
	}

	var h float64
	if pYes > 0 {
		normalize(yes)
		h += pYes / total * entropy(yes)
	}
	if pNo > 0 {
		normalize(no)
		h += pNo / total * entropy(no)
	}
	return h
}

// Top returns the most probable hypothesis, ties broken by lowest ID.
func (e *Engine) Top(s State) (Hypothesis, bool) {
	id := TopDisease(s.Probabilities())
	for _, h := range s.Hypotheses {
		if h.ID == id {
			return h, true
		}
	}
	return Hypothesis{}, false
}

// TopDisease returns the ID with the highest probability. Ties are broken by
// the lexicographically lowest ID so the result never depends on map order.
// It returns "" for an empty distribution.
func TopDisease(probabilities map[string]float64) string {
	ids := make([]string, 0, len(probabilities))
	for id := range probabilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best := ""
	bestP := math.Inf(-1)
	for _, id := range ids {
		if p := probabilities[id]; p > bestP {
			best, bestP = id, p
		}
	}
	return best
}

// Explain lists the answers that most strongly favour the top hypothesis,
// strongest first, formatted as "<question>: <answer>". Only answers with a
// positive log-likelihood ratio are cited.
func (e *Engine) Explain(s State) []string {
	if e.checkState(s) != nil {
		return nil
	}
	top, ok := e.Top(s)
	if !ok {
		return nil
	}
	winner := e.kb.diseaseIndex[top.ID]
	probs := hypothesisProbs(s)

	type cited struct {
		answer Answer
		llr    float64
	}
	var cs []cited
	for _, a := range s.EffectiveAnswers() {
		if llr := e.logLikelihoodRatio(a, winner, probs); llr > 0 {
			cs = append(cs, cited{a, llr})
		}
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].llr > cs[j].llr })

	if len(cs) > e.params.ExplanationLimit {
		cs = cs[:e.params.ExplanationLimit]
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		sym := e.kb.symptoms[e.kb.symptomIndex[c.answer.SymptomID]]
		out[i] = fmt.Sprintf("%s: %s", sym.Question, c.answer.Value)
	}
	return out
}

func (e *Engine) checkState(s State) error {
	if len(s.Hypotheses) != len(e.kb.diseases) {
		return fmt.Errorf("%w: %d hypotheses for %d diseases", ErrInvalidState, len(s.Hypotheses), len(e.kb.diseases))
	}
	for i, h := range s.Hypotheses {
		if h.ID != e.kb.diseases[i].ID {
			return fmt.Errorf("%w: hypothesis %d is %q", ErrInvalidState, i, h.ID)
		}
	}
	for _, a := range s.Answers {
		if _, ok := e.kb.symptomIndex[a.SymptomID]; !ok {
			return fmt.Errorf("%w: answer for unknown symptom %q", ErrInvalidState, a.SymptomID)
		}
	}
	return nil
}

func hypothesisProbs(s State) []float64 {
	p := make([]float64, len(s.Hypotheses))
	for i, h := range s.Hypotheses {
		p[i] = h.Probability
	}
	return p
}

// runnerUp returns the largest probability other than the winner's.
func runnerUp(p []float64, winner int) float64 {
	var best float64
	for i, v := range p {
		if i != winner && v > best {
			best = v
		}
	}
	return best
}

// normalize scales p to sum to 1. It reports false, leaving p untouched, when
// the sum is not positive.
func normalize(p []float64) bool {
	var sum float64
	for _, v := range p {
		sum += v
	}
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return false
	}
	for i := range p {
		p[i] /= sum
	}
	return true
}

// entropy returns the Shannon entropy of p in bits.
func entropy(p []float64) float64 {
	var h float64
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log2(v)
		}
	}
	return h
}

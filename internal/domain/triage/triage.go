// Package triage walks an ordered list of danger signs. A single "yes" ends
// the walk with an emergency; answering "no" to every sign clears the child
// for differential questioning.
package triage

import (
	"errors"
	"fmt"
)

// Triage errors.
var (
	// ErrTriageFinished is returned when answering a state that already
	// reached an emergency or was cleared.
	ErrTriageFinished = errors.New("red-flag triage already finished")

	// ErrInvalidState is returned when a state does not fit the flag list.
	ErrInvalidState = errors.New("invalid red-flag state")

	// ErrInvalidFlag is returned when a red flag is missing required fields.
	ErrInvalidFlag = errors.New("invalid red flag")
)

// RedFlag is a danger sign whose presence alone mandates referral.
type RedFlag struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Question string `json:"question" yaml:"question" validate:"required"`
	Reason   string `json:"reason" yaml:"reason" validate:"required"`
}

// Emergency records the flag that aborted triage.
type Emergency struct {
	FlagID   string `json:"flag_id"`
	Question string `json:"question"`
	Reason   string `json:"reason"`
}

// State is the serializable progress through the flag list.
type State struct {
	Index     int        `json:"index"`
	Answers   []bool     `json:"answers"`
	Cleared   bool       `json:"cleared"`
	Emergency *Emergency `json:"emergency,omitempty"`
}

// Finished reports whether triage reached a terminal state.
func (s State) Finished() bool {
	return s.Cleared || s.Emergency != nil
}

// ValidateFlags checks that every flag is complete and IDs are unique.
func ValidateFlags(flags []RedFlag) error {
	seen := make(map[string]bool, len(flags))
	for i, f := range flags {
		if f.ID == "" || f.Question == "" || f.Reason == "" {
			return fmt.Errorf("%w: flag %d is incomplete", ErrInvalidFlag, i)
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidFlag, f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// Start returns the initial state for the flag list. An empty list is
// cleared immediately.
func Start(flags []RedFlag) State {
	return State{Cleared: len(flags) == 0, Answers: []bool{}}
}

// Current returns the flag awaiting an answer, or false when triage is finished.
func Current(flags []RedFlag, s State) (RedFlag, bool) {
	if s.Finished() || s.Index < 0 || s.Index >= len(flags) {
		return RedFlag{}, false
	}
	return flags[s.Index], true
}

// Answer records the answer to the current flag and returns the next state.
// The input state is not modified.
func Answer(flags []RedFlag, s State, yes bool) (State, error) {
	if s.Finished() {
		return s, ErrTriageFinished
	}
	if s.Index < 0 || s.Index >= len(flags) || len(s.Answers) != s.Index {
		return s, fmt.Errorf("%w: index %d of %d flags", ErrInvalidState, s.Index, len(flags))
	}

	next := State{
		Index:   s.Index,
		Answers: append(append(make([]bool, 0, len(s.Answers)+1), s.Answers...), yes),
	}

	flag := flags[s.Index]
	if yes {
		next.Emergency = &Emergency{
			FlagID:   flag.ID,
			Question: flag.Question,
			Reason:   EmergencyReason(flag),
		}
		return next, nil
	}

	next.Index++
	next.Cleared = next.Index == len(flags)
	return next, nil
}

// EmergencyReason formats the message shown when a flag is answered "yes".
func EmergencyReason(f RedFlag) string {
	return f.Question + " (YES). " + f.Reason
}

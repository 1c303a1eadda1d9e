package domain

import "time"

// OutcomeStatus is the terminal status of a screening.
type OutcomeStatus string

// Terminal outcome statuses.
const (
	// OutcomeEmergency means a red flag was answered "yes" and the child
	// needs immediate referral. It is not an error.
	OutcomeEmergency OutcomeStatus = "emergency"

	// OutcomeDiagnosed means one disease crossed the confidence threshold.
	OutcomeDiagnosed OutcomeStatus = "diagnosed"

	// OutcomeInconclusive means no remaining question could settle the ranking.
	OutcomeInconclusive OutcomeStatus = "inconclusive"
)

// Valid reports whether s is a known outcome status.
func (s OutcomeStatus) Valid() bool {
	switch s {
	case OutcomeEmergency, OutcomeDiagnosed, OutcomeInconclusive:
		return true
	default:
		return false
	}
}

// TriageLevel orders outcomes by how urgently the child must be seen.
type TriageLevel string

// Triage levels, most urgent first.
const (
	TriageEmergency        TriageLevel = "EMERGENCY"
	TriageReferImmediately TriageLevel = "REFER_IMMEDIATELY"
	TriageDiagnosed        TriageLevel = "DIAGNOSED"
	TriagePending          TriageLevel = "PENDING"
)

// Rank returns the numeric severity of a triage level. Higher is more urgent;
// unknown levels rank zero.
func (l TriageLevel) Rank() int {
	switch l {
	case TriageEmergency:
		return 4
	case TriageReferImmediately:
		return 3
	case TriageDiagnosed:
		return 2
	case TriagePending:
		return 1
	default:
		return 0
	}
}

// DiseaseResult is the winning hypothesis reported in an outcome.
type DiseaseResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Urgent      bool    `json:"urgent"`
}

// EmergencyDetail describes the red flag that aborted a screening.
type EmergencyDetail struct {
	FlagID   string `json:"flag_id"`
	Question string `json:"question"`
	Reason   string `json:"reason"`
}

// ScreeningOutcome is the terminal result of a screening session.
// It is created exactly once and never mutated afterwards.
type ScreeningOutcome struct {
	Status      OutcomeStatus    `json:"status"`
	TopDisease  *DiseaseResult   `json:"top_disease,omitempty"`
	Emergency   *EmergencyDetail `json:"emergency,omitempty"`
	Explanation []string         `json:"explanation"`
	TriageLevel TriageLevel      `json:"triage_level"`
	Timestamp   time.Time        `json:"timestamp"`
}

// TriageLevelFor derives the triage level of an outcome status. Urgent
// diagnoses are escalated to an immediate referral.
func TriageLevelFor(status OutcomeStatus, urgent bool) TriageLevel {
	switch status {
	case OutcomeEmergency:
		return TriageEmergency
	case OutcomeDiagnosed:
		if urgent {
			return TriageReferImmediately
		}
		return TriageDiagnosed
	default:
		return TriagePending
	}
}

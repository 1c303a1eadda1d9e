// Package domain contains the core business entities, value objects, and
// domain logic of the screening service. It represents the heart of the system,
// independent of any specific infrastructure or delivery mechanism.
//
// Subpackages hold the algorithmic engines: growth (LMS z-scores and
// classification), triage (red-flag danger signs), inference (Bayesian
// differential diagnosis) and screening (the session state machine).
package domain

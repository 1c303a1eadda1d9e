package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidIndicator is returned when an indicator kind is not one of the
	// known growth indicators.
	ErrInvalidIndicator = errors.New("invalid growth indicator")

	// ErrInvalidSex is returned when a sex value is neither male nor female.
	ErrInvalidSex = errors.New("invalid sex")

	// ErrInvalidMeasurement is returned when a measurement value or unit is unusable.
	ErrInvalidMeasurement = errors.New("invalid measurement")

	// ErrInvalidOutcomeStatus is returned when an outcome status is not valid.
	ErrInvalidOutcomeStatus = errors.New("invalid outcome status")

	// ErrInvalidPhase is returned when a session phase is not valid.
	ErrInvalidPhase = errors.New("invalid session phase")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

package screening

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mydudu/screening-api/internal/domain/inference"
	"github.com/mydudu/screening-api/internal/store"
)

// Service sentinel errors. The API layer maps each to a status code.
var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("screening session not found")

	// ErrSessionNotOwned indicates the session belongs to another operator.
	ErrSessionNotOwned = errors.New("screening session is owned by another operator")

	// ErrSessionExpired indicates the session timed out before it finished.
	ErrSessionExpired = errors.New("screening session has expired")

	// ErrInvalidChildRef indicates an empty child reference.
	ErrInvalidChildRef = errors.New("child reference cannot be empty")

	// ErrCorruptState indicates a stored session whose state cannot be decoded.
	ErrCorruptState = errors.New("stored screening state is corrupt")

	// ErrStalePrompt indicates an answer for a red flag that is no longer the
	// one the session is waiting on.
	ErrStalePrompt = errors.New("question is no longer current")
)

// ServiceError wraps errors from the screening service with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "answer_question")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("screening service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("screening service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError. Service sentinels are returned
// unwrapped, and a missing session in the store becomes ErrSessionNotFound.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{ErrSessionNotFound, ErrSessionNotOwned, ErrSessionExpired, ErrInvalidChildRef, ErrStalePrompt} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		return ErrSessionNotFound
	}

	var unknown *UnknownSymptomError
	if errors.As(err, &unknown) {
		return unknown
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// UnknownSymptomError reports an answer for a symptom that is not in the
// knowledge base, together with the closest known IDs.
type UnknownSymptomError struct {
	SymptomID   string
	Suggestions []string
}

// Error implements the error interface.
func (e *UnknownSymptomError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown symptom %q", e.SymptomID)
	}
	return fmt.Sprintf("unknown symptom %q (did you mean %s?)", e.SymptomID, strings.Join(e.Suggestions, ", "))
}

// Unwrap lets callers match inference.ErrUnknownSymptom.
func (e *UnknownSymptomError) Unwrap() error {
	return inference.ErrUnknownSymptom
}

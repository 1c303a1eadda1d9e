package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/domain/triage"
	"github.com/mydudu/screening-api/internal/service/auth"
	"github.com/mydudu/screening-api/internal/service/screening"
	"github.com/mydudu/screening-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so internal
// error types never reach clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, screening.ErrSessionNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, screening.ErrSessionNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, screening.ErrSessionExpired):
		return http.StatusGone

	// Wrong step for the session's current phase
	case errors.Is(err, screening.ErrStalePrompt),
		errors.Is(err, fsm.ErrInvalidPhase),
		errors.Is(err, triage.ErrTriageFinished),
		errors.Is(err, inference.ErrInferenceFinished):
		return http.StatusConflict

	case errors.Is(err, inference.ErrUnknownSymptom):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidSex),
		errors.Is(err, domain.ErrInvalidMeasurement),
		errors.Is(err, screening.ErrInvalidChildRef),
		errors.Is(err, inference.ErrInvalidAnswer),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that carries no
// internal detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var unknown *screening.UnknownSymptomError
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, screening.ErrSessionNotOwned):
		return "You do not have access to this screening"

	case errors.Is(err, screening.ErrSessionNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Screening not found"

	case errors.Is(err, screening.ErrSessionExpired):
		return "Screening has expired, start a new one"

	case errors.Is(err, screening.ErrStalePrompt):
		return "Question is no longer current"

	case errors.Is(err, fsm.ErrInvalidPhase),
		errors.Is(err, triage.ErrTriageFinished),
		errors.Is(err, inference.ErrInferenceFinished):
		return "This step is not available in the screening's current phase"

	case errors.As(err, &unknown):
		return fmt.Sprintf("Unknown symptom %q", unknown.SymptomID)

	case errors.Is(err, inference.ErrUnknownSymptom):
		return "Unknown symptom"

	case errors.Is(err, inference.ErrInvalidAnswer):
		return "Invalid answer"

	case errors.Is(err, domain.ErrInvalidSex):
		return "Invalid sex: must be male or female"

	case errors.Is(err, domain.ErrInvalidMeasurement):
		return "Invalid measurements"

	case errors.Is(err, screening.ErrInvalidChildRef):
		return "Child reference is required"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. For server
// errors a non-empty defaultMsg replaces the generic message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	var unknown *screening.UnknownSymptomError
	if errors.As(err, &unknown) && len(unknown.Suggestions) > 0 {
		opts = append(opts, shared.WithSuggestions(unknown.Suggestions))
	}
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError writes a 400 response describing which field failed
// validation, without echoing the submitted value.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns a validator error into a short message naming
// the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag(), fe.Param()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "must be at least " + param
	case "max", "lte":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "oneof":
		return "must be one of " + param
	default:
		return "validation failed"
	}
}

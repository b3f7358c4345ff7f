package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dunskii/studyhub/internal/api/shared"
	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so handlers
// never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case err == nil:
		return http.StatusOK

	// Authorization errors
	case errors.Is(err, domain.ErrFlashcardNotOwned):
		return http.StatusForbidden

	// Not found errors. Entity-specific errors all wrap store.ErrNotFound.
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConcurrentModification):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Field names
// from validation errors are included; nothing else from the error text is.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, domain.ErrFlashcardNotOwned):
		return "Flashcard belongs to another learner"

	case errors.Is(err, store.ErrLearnerNotFound):
		return "Learner not found"
	case errors.Is(err, store.ErrFlashcardNotFound):
		return "Flashcard not found"
	case errors.Is(err, store.ErrScheduleNotFound):
		return "Flashcard has not been reviewed yet"
	case errors.Is(err, store.ErrSubjectNotFound):
		return "Subject not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrSessionAlreadyRecorded):
		return "Study session already completed"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.Is(err, store.ErrConcurrentModification):
		return "Progress was updated concurrently, please retry"

	case errors.As(err, &validationErr):
		if validationErr.Field != "" {
			return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
		}
		return "Invalid request"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a short message that
// names the first failing field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "ltefield":
		return "exceeds related field"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and sanitized message for err. When
// fallback is set it replaces the generic 500 message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

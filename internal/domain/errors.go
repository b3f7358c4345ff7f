package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInput is returned when an operation receives an argument outside
	// its accepted range, such as a negative XP amount or an SM-2 quality above 5.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnknownActivity is returned when an activity type has no rule.
	// The XP ledger treats it as non-fatal.
	ErrUnknownActivity = errors.New("unknown activity type")

	// ErrFlashcardNotOwned is returned when a learner reviews a flashcard that
	// belongs to another learner.
	ErrFlashcardNotOwned = errors.New("flashcard belongs to another learner")
)

// ValidationError carries the offending field along with the sentinel it wraps.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Err)
}

// Unwrap returns the wrapped sentinel so errors.Is works.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError. A nil err defaults to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

// NewInvalidInputError is shorthand for a ValidationError wrapping ErrInvalidInput.
func NewInvalidInputError(field, message string) *ValidationError {
	return NewValidationError(field, message, ErrInvalidInput)
}

package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrLearnerNotFound, ErrFlashcardNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConcurrentModification is returned when a save finds that the stored
	// record changed since it was loaded. The caller should reload and
	// re-apply the same logical event once.
	ErrConcurrentModification = errors.New("concurrent modification")

	// Entity-specific "not found" errors

	// ErrLearnerNotFound indicates that the requested learner does not exist.
	ErrLearnerNotFound = fmt.Errorf("%w: learner", ErrNotFound)

	// ErrFlashcardNotFound indicates that the requested flashcard does not exist.
	ErrFlashcardNotFound = fmt.Errorf("%w: flashcard", ErrNotFound)

	// ErrScheduleNotFound indicates that the learner has no schedule for the flashcard yet.
	ErrScheduleNotFound = fmt.Errorf("%w: flashcard schedule", ErrNotFound)

	// ErrSubjectNotFound indicates that the requested subject does not exist.
	ErrSubjectNotFound = fmt.Errorf("%w: subject", ErrNotFound)

	// ErrSubjectProgressNotFound indicates that the learner has no progress in the subject yet.
	ErrSubjectProgressNotFound = fmt.Errorf("%w: subject progress", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrSessionAlreadyRecorded indicates that a study session was already completed.
	ErrSessionAlreadyRecorded = fmt.Errorf("%w: study session", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Entity-specific errors wrap ErrNotFound, so one check covers them all.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "gamification_state", "flashcard_schedule")
	Operation string // The operation that failed (e.g., "get", "save")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

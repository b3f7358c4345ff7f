package progress

import (
	"errors"
	"fmt"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/store"
)

// ServiceError wraps unexpected failures of a progress operation.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("progress service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("progress service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// isExpected reports errors callers are meant to branch on; they pass
// through unwrapped.
func isExpected(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrFlashcardNotOwned) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrDuplicate) ||
		errors.Is(err, store.ErrConcurrentModification) ||
		store.IsNotFoundError(err)
}

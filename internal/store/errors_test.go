package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "generic error", err: errors.New("some error"), expected: false},
		{name: "ErrNotFound", err: ErrNotFound, expected: true},
		{name: "wrapped ErrNotFound", err: fmt.Errorf("load: %w", ErrNotFound), expected: true},
		{name: "ErrLearnerNotFound", err: ErrLearnerNotFound, expected: true},
		{name: "ErrFlashcardNotFound", err: ErrFlashcardNotFound, expected: true},
		{name: "ErrScheduleNotFound", err: ErrScheduleNotFound, expected: true},
		{name: "ErrSubjectProgressNotFound", err: ErrSubjectProgressNotFound, expected: true},
		{
			name:     "store error wrapping not found",
			err:      NewStoreError("learner", "get", "missing", ErrLearnerNotFound),
			expected: true,
		},
		{name: "concurrent modification", err: ErrConcurrentModification, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsDuplicateError(nil))
	assert.False(t, IsDuplicateError(ErrNotFound))
	assert.True(t, IsDuplicateError(ErrDuplicate))
	assert.True(t, IsDuplicateError(ErrSessionAlreadyRecorded))
	assert.True(t, IsDuplicateError(fmt.Errorf("complete session: %w", ErrSessionAlreadyRecorded)))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	originalErr := errors.New("database connection failed")
	storeErr := NewStoreError("gamification_state", "save", "database error", originalErr)

	assert.Equal(t,
		"save operation on gamification_state failed: database error: database connection failed",
		storeErr.Error())
	assert.ErrorIs(t, storeErr, originalErr)

	bare := NewStoreError("subject", "get", "no rows", nil)
	assert.Equal(t, "get operation on subject failed: no rows", bare.Error())
}

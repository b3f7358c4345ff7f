package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scheduling defaults for a flashcard that has never been reviewed.
const (
	DefaultEaseFactor   = 2.5
	DefaultIntervalDays = 1
)

// FlashcardSchedule is the per-learner SM-2 state of a flashcard.
type FlashcardSchedule struct {
	FlashcardID     uuid.UUID  `json:"flashcard_id"`
	LearnerID       uuid.UUID  `json:"learner_id"`
	SubjectID       *uuid.UUID `json:"subject_id,omitempty"`
	IntervalDays    int        `json:"interval_days"`
	EaseFactor      float64    `json:"ease_factor"`
	RepetitionCount int        `json:"repetition_count"`
	NextReview      *time.Time `json:"next_review,omitempty"`
	LastReviewedAt  *time.Time `json:"last_reviewed_at,omitempty"`
	ReviewCount     int        `json:"review_count"`
	CorrectCount    int        `json:"correct_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewFlashcardSchedule returns the initial schedule for a never-reviewed card.
// The card is due immediately.
func NewFlashcardSchedule(learnerID, flashcardID uuid.UUID, now time.Time) *FlashcardSchedule {
	due := now.UTC()
	return &FlashcardSchedule{
		FlashcardID:  flashcardID,
		LearnerID:    learnerID,
		IntervalDays: DefaultIntervalDays,
		EaseFactor:   DefaultEaseFactor,
		NextReview:   &due,
		CreatedAt:    due,
		UpdatedAt:    due,
	}
}

// Validate checks the SM-2 invariants of the schedule.
func (s *FlashcardSchedule) Validate() error {
	if s.FlashcardID == uuid.Nil {
		return NewValidationError("flashcard_id", "must be set", nil)
	}
	if s.LearnerID == uuid.Nil {
		return NewValidationError("learner_id", "must be set", nil)
	}
	if s.IntervalDays < 1 {
		return NewValidationError("interval_days", "must be at least 1", nil)
	}
	if s.EaseFactor < 1.3 {
		return NewValidationError("ease_factor", "must be at least 1.3", nil)
	}
	if s.RepetitionCount < 0 {
		return NewValidationError("repetition_count", "must not be negative", nil)
	}
	if s.CorrectCount > s.ReviewCount {
		return NewValidationError("correct_count", "cannot exceed review_count", nil)
	}
	return nil
}

// Flashcard is the minimal card reference the engine needs: who owns it and
// which subject it belongs to.
type Flashcard struct {
	ID        uuid.UUID  `json:"id"`
	LearnerID uuid.UUID  `json:"learner_id"`
	SubjectID *uuid.UUID `json:"subject_id,omitempty"`
}

// FlashcardReview is a single recorded review.
type FlashcardReview struct {
	ID          uuid.UUID `json:"id"`
	FlashcardID uuid.UUID `json:"flashcard_id"`
	LearnerID   uuid.UUID `json:"learner_id"`
	Quality     int       `json:"quality"`
	WasCorrect  bool      `json:"was_correct"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

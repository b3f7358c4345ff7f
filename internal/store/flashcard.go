package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
)

// FlashcardScheduleStore persists SM-2 schedules and the review log.
type FlashcardScheduleStore interface {
	// GetFlashcard returns the card's owner and subject.
	// Returns ErrFlashcardNotFound if the card does not exist.
	GetFlashcard(ctx context.Context, flashcardID uuid.UUID) (*domain.Flashcard, error)

	// Get returns ErrScheduleNotFound when the learner never reviewed the card.
	// NOTE: This method does NOT lock the row.
	Get(ctx context.Context, learnerID, flashcardID uuid.UUID) (*domain.FlashcardSchedule, error)

	// GetForUpdate retrieves the schedule with a row-level lock using SELECT FOR UPDATE.
	GetForUpdate(ctx context.Context, learnerID, flashcardID uuid.UUID) (*domain.FlashcardSchedule, error)

	// Save inserts or replaces the schedule.
	Save(ctx context.Context, schedule *domain.FlashcardSchedule) error

	// RecordReview appends a review to the log.
	RecordReview(ctx context.Context, review *domain.FlashcardReview) error

	// SubjectReviewTotals sums review and correct counts over the learner's
	// schedules in a subject.
	SubjectReviewTotals(ctx context.Context, learnerID, subjectID uuid.UUID) (reviews, correct int, err error)

	// WithTx returns a new FlashcardScheduleStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) FlashcardScheduleStore
}

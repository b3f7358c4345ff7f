package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/store"
)

// PostgresFlashcardStore implements the store.FlashcardScheduleStore
// interface using a PostgreSQL database as the storage backend.
type PostgresFlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFlashcardStore creates a new PostgreSQL implementation of the
// FlashcardScheduleStore interface.
func NewPostgresFlashcardStore(db store.DBTX, logger *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFlashcardStore{
		db:     db,
		logger: logger.With(slog.String("component", "flashcard_store")),
	}
}

var _ store.FlashcardScheduleStore = (*PostgresFlashcardStore)(nil)

// GetFlashcard implements store.FlashcardScheduleStore.GetFlashcard.
func (s *PostgresFlashcardStore) GetFlashcard(ctx context.Context, flashcardID uuid.UUID) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		card      domain.Flashcard
		subjectID uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, learner_id, subject_id
		FROM flashcards
		WHERE id = $1
	`, flashcardID).Scan(&card.ID, &card.LearnerID, &subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("flashcard not found", slog.String("flashcard_id", flashcardID.String()))
			return nil, store.ErrFlashcardNotFound
		}
		log.Error("failed to get flashcard",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", flashcardID.String()))
		return nil, MapError(err)
	}
	card.SubjectID = nullUUIDPtr(subjectID)
	return &card, nil
}

const selectSchedule = `
		SELECT flashcard_id, learner_id, subject_id, interval_days, ease_factor, repetition_count,
			next_review, last_reviewed_at, review_count, correct_count, created_at, updated_at
		FROM flashcard_schedules
		WHERE learner_id = $1 AND flashcard_id = $2
	`

// Get implements store.FlashcardScheduleStore.Get.
func (s *PostgresFlashcardStore) Get(ctx context.Context, learnerID, flashcardID uuid.UUID) (*domain.FlashcardSchedule, error) {
	return s.getSchedule(ctx, selectSchedule, learnerID, flashcardID)
}

// GetForUpdate implements store.FlashcardScheduleStore.GetForUpdate.
func (s *PostgresFlashcardStore) GetForUpdate(ctx context.Context, learnerID, flashcardID uuid.UUID) (*domain.FlashcardSchedule, error) {
	return s.getSchedule(ctx, selectSchedule+" FOR UPDATE", learnerID, flashcardID)
}

func (s *PostgresFlashcardStore) getSchedule(
	ctx context.Context,
	query string,
	learnerID, flashcardID uuid.UUID,
) (*domain.FlashcardSchedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		sch            domain.FlashcardSchedule
		subjectID      uuid.NullUUID
		nextReview     sql.NullTime
		lastReviewedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, learnerID, flashcardID).Scan(
		&sch.FlashcardID,
		&sch.LearnerID,
		&subjectID,
		&sch.IntervalDays,
		&sch.EaseFactor,
		&sch.RepetitionCount,
		&nextReview,
		&lastReviewedAt,
		&sch.ReviewCount,
		&sch.CorrectCount,
		&sch.CreatedAt,
		&sch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrScheduleNotFound
		}
		log.Error("failed to get flashcard schedule",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("flashcard_id", flashcardID.String()))
		return nil, MapError(err)
	}

	sch.SubjectID = nullUUIDPtr(subjectID)
	sch.NextReview = nullTimePtr(nextReview)
	sch.LastReviewedAt = nullTimePtr(lastReviewedAt)
	return &sch, nil
}

// Save implements store.FlashcardScheduleStore.Save.
func (s *PostgresFlashcardStore) Save(ctx context.Context, schedule *domain.FlashcardSchedule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := schedule.Validate(); err != nil {
		log.Warn("flashcard schedule validation failed during save",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", schedule.FlashcardID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flashcard_schedules
			(learner_id, flashcard_id, subject_id, interval_days, ease_factor, repetition_count,
			 next_review, last_reviewed_at, review_count, correct_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (learner_id, flashcard_id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			interval_days = EXCLUDED.interval_days,
			ease_factor = EXCLUDED.ease_factor,
			repetition_count = EXCLUDED.repetition_count,
			next_review = EXCLUDED.next_review,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			review_count = EXCLUDED.review_count,
			correct_count = EXCLUDED.correct_count,
			updated_at = EXCLUDED.updated_at
	`,
		schedule.LearnerID,
		schedule.FlashcardID,
		uuidPtrArg(schedule.SubjectID),
		schedule.IntervalDays,
		schedule.EaseFactor,
		schedule.RepetitionCount,
		timePtrArg(schedule.NextReview),
		timePtrArg(schedule.LastReviewedAt),
		schedule.ReviewCount,
		schedule.CorrectCount,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrFlashcardNotFound, schedule.FlashcardID)
		}
		log.Error("failed to save flashcard schedule",
			slog.String("error", err.Error()),
			slog.String("learner_id", schedule.LearnerID.String()),
			slog.String("flashcard_id", schedule.FlashcardID.String()))
		return MapError(err)
	}
	return nil
}

// RecordReview implements store.FlashcardScheduleStore.RecordReview.
func (s *PostgresFlashcardStore) RecordReview(ctx context.Context, review *domain.FlashcardReview) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flashcard_reviews (id, flashcard_id, learner_id, quality, was_correct, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, review.ID, review.FlashcardID, review.LearnerID, review.Quality, review.WasCorrect, review.ReviewedAt)
	if err != nil {
		log.Error("failed to record flashcard review",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", review.FlashcardID.String()))
		return MapError(err)
	}
	return nil
}

// SubjectReviewTotals implements store.FlashcardScheduleStore.SubjectReviewTotals.
func (s *PostgresFlashcardStore) SubjectReviewTotals(ctx context.Context, learnerID, subjectID uuid.UUID) (int, int, error) {
	var reviews, correct int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(review_count), 0), COALESCE(SUM(correct_count), 0)
		FROM flashcard_schedules
		WHERE learner_id = $1 AND subject_id = $2
	`, learnerID, subjectID).Scan(&reviews, &correct)
	if err != nil {
		return 0, 0, MapError(err)
	}
	return reviews, correct, nil
}

// WithTx implements store.FlashcardScheduleStore.WithTx.
func (s *PostgresFlashcardStore) WithTx(tx *sql.Tx) store.FlashcardScheduleStore {
	return &PostgresFlashcardStore{db: tx, logger: s.logger}
}

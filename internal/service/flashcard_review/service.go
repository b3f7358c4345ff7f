// Package flashcard_review schedules flashcard reviews with SM-2 and credits
// the review XP in the same transaction.
package flashcard_review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/srs"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/platform/metrics"
	"github.com/dunskii/studyhub/internal/service/progress"
	"github.com/dunskii/studyhub/internal/store"
)

// OpFlashcardReview names the review unit of work in logs, spans and metrics.
const OpFlashcardReview = "flashcard_review"

// ReviewInput grades a review either directly by SM-2 quality or by the
// difficulty the learner reported together with whether the answer was right.
type ReviewInput struct {
	Quality    *int  `json:"quality,omitempty" validate:"omitempty,min=0,max=5"`
	Difficulty *int  `json:"difficulty,omitempty"`
	WasCorrect *bool `json:"was_correct,omitempty"`
}

// ReviewOutcome is the result of one submitted review.
type ReviewOutcome struct {
	Schedule              *domain.FlashcardSchedule `json:"schedule"`
	Result                srs.ReviewResult          `json:"result"`
	Quality               int                       `json:"quality"`
	WasCorrect            bool                      `json:"was_correct"`
	MasteryPercent        int                       `json:"mastery_percent"`
	SubjectMasteryPercent *int                      `json:"subject_mastery_percent,omitempty"`
	XP                    *progress.ReviewXP        `json:"xp"`
}

// Service handles flashcard reviews.
type Service interface {
	// SubmitReview schedules the card's next review and awards review XP.
	// Returns domain.ErrFlashcardNotOwned when the card belongs to another
	// learner and store.ErrFlashcardNotFound when it does not exist.
	SubmitReview(ctx context.Context, learnerID, flashcardID uuid.UUID, in ReviewInput) (*ReviewOutcome, error)

	// PostponeReview pushes the card's next review back by days.
	PostponeReview(ctx context.Context, learnerID, flashcardID uuid.UUID, days int) (*domain.FlashcardSchedule, error)
}

var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	progress progress.Service
	srs      srs.Service
	tx       store.TxManager
	clock    progress.Clock
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewService creates the review service.
func NewService(
	progressService progress.Service,
	srsService srs.Service,
	tx store.TxManager,
	clock progress.Clock,
	rec *metrics.Recorder,
	logger *slog.Logger,
) (Service, error) {
	if progressService == nil {
		return nil, errors.New("progress service cannot be nil")
	}
	if srsService == nil {
		return nil, errors.New("srs service cannot be nil")
	}
	if tx == nil {
		return nil, errors.New("transaction manager cannot be nil")
	}
	if clock == nil {
		return nil, errors.New("clock cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		progress: progressService,
		srs:      srsService,
		tx:       tx,
		clock:    clock,
		metrics:  rec,
		logger:   logger.With(slog.String("component", "flashcard_review_service")),
	}, nil
}

// grade turns the input into an SM-2 quality and a correctness flag.
func (s *serviceImpl) grade(in ReviewInput) (int, bool, error) {
	switch {
	case in.Quality != nil:
		q := *in.Quality
		if q < srs.MinQuality || q > srs.MaxQuality {
			return 0, false, domain.NewInvalidInputError("quality",
				fmt.Sprintf("must be between %d and %d, got %d", srs.MinQuality, srs.MaxQuality, q))
		}
		return q, q >= s.srs.Params().PassingQuality, nil
	case in.Difficulty != nil && in.WasCorrect != nil:
		return srs.QualityFromDifficulty(*in.Difficulty, *in.WasCorrect), *in.WasCorrect, nil
	default:
		return 0, false, domain.NewInvalidInputError("quality",
			"either quality or difficulty with was_correct is required")
	}
}

// SubmitReview implements Service.SubmitReview.
func (s *serviceImpl) SubmitReview(
	ctx context.Context,
	learnerID, flashcardID uuid.UUID,
	in ReviewInput,
) (*ReviewOutcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	quality, correct, err := s.grade(in)
	if err != nil {
		log.Debug("invalid review input",
			slog.String("learner_id", learnerID.String()),
			slog.String("flashcard_id", flashcardID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	var outcome *ReviewOutcome
	err = s.progress.Run(ctx, OpFlashcardReview, learnerID, func(ctx context.Context, u *progress.Unit) error {
		card, err := s.ownedCard(ctx, u.Stores, learnerID, flashcardID)
		if err != nil {
			return err
		}

		schedule, err := u.Stores.Flashcards.GetForUpdate(ctx, learnerID, flashcardID)
		if errors.Is(err, store.ErrScheduleNotFound) {
			schedule = domain.NewFlashcardSchedule(learnerID, flashcardID, u.Now)
		} else if err != nil {
			return fmt.Errorf("lock flashcard schedule: %w", err)
		}
		schedule.SubjectID = card.SubjectID

		next, result, err := s.srs.ApplyReview(schedule, quality, correct, u.Now)
		if err != nil {
			return err
		}
		if err := u.Stores.Flashcards.Save(ctx, next); err != nil {
			return fmt.Errorf("save flashcard schedule: %w", err)
		}
		if err := u.Stores.Flashcards.RecordReview(ctx, &domain.FlashcardReview{
			ID:          uuid.New(),
			FlashcardID: flashcardID,
			LearnerID:   learnerID,
			Quality:     quality,
			WasCorrect:  correct,
			ReviewedAt:  u.Now,
		}); err != nil {
			return fmt.Errorf("record review: %w", err)
		}

		outcome = &ReviewOutcome{
			Schedule:       next,
			Result:         result,
			Quality:        quality,
			WasCorrect:     correct,
			MasteryPercent: srs.MasteryPercent(next.ReviewCount, next.CorrectCount),
		}

		if card.SubjectID != nil {
			mastery, err := s.updateSubjectMastery(ctx, u, *card.SubjectID)
			if err != nil {
				return err
			}
			outcome.SubjectMasteryPercent = &mastery
		}

		xp, err := u.FlashcardReviewed(ctx, card.SubjectID, correct)
		if err != nil {
			return err
		}
		outcome.XP = xp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Review(outcome.Result.WasSuccessful)
	log.Debug("flashcard review recorded",
		slog.String("learner_id", learnerID.String()),
		slog.String("flashcard_id", flashcardID.String()),
		slog.Int("quality", quality),
		slog.Int("interval_days", outcome.Schedule.IntervalDays),
		slog.Int("xp_earned", outcome.XP.XPEarned))
	return outcome, nil
}

// updateSubjectMastery recomputes the learner's mastery of a subject from the
// review totals of all their cards in it, including the review just saved.
func (s *serviceImpl) updateSubjectMastery(ctx context.Context, u *progress.Unit, subjectID uuid.UUID) (int, error) {
	reviews, correct, err := u.Stores.Flashcards.SubjectReviewTotals(ctx, u.LearnerID, subjectID)
	if err != nil {
		return 0, fmt.Errorf("sum subject reviews: %w", err)
	}
	p, err := u.SubjectForUpdate(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	p.MasteryPercent = srs.MasteryPercent(reviews, correct)
	return p.MasteryPercent, nil
}

func (s *serviceImpl) ownedCard(
	ctx context.Context,
	stores store.Stores,
	learnerID, flashcardID uuid.UUID,
) (*domain.Flashcard, error) {
	card, err := stores.Flashcards.GetFlashcard(ctx, flashcardID)
	if err != nil {
		return nil, fmt.Errorf("get flashcard: %w", err)
	}
	if card.LearnerID != learnerID {
		s.logger.WarnContext(ctx, "learner does not own flashcard",
			slog.String("learner_id", learnerID.String()),
			slog.String("flashcard_id", flashcardID.String()),
			slog.String("owner_id", card.LearnerID.String()))
		return nil, domain.ErrFlashcardNotOwned
	}
	return card, nil
}

// PostponeReview implements Service.PostponeReview.
func (s *serviceImpl) PostponeReview(
	ctx context.Context,
	learnerID, flashcardID uuid.UUID,
	days int,
) (*domain.FlashcardSchedule, error) {
	if days < 1 {
		return nil, domain.NewInvalidInputError("days", "must be at least 1")
	}

	var postponed *domain.FlashcardSchedule
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores store.Stores) error {
		if _, err := s.ownedCard(ctx, stores, learnerID, flashcardID); err != nil {
			return err
		}
		schedule, err := stores.Flashcards.GetForUpdate(ctx, learnerID, flashcardID)
		if err != nil {
			return fmt.Errorf("lock flashcard schedule: %w", err)
		}
		next, err := s.srs.PostponeReview(schedule, days, s.clock.Now())
		if err != nil {
			return err
		}
		if err := stores.Flashcards.Save(ctx, next); err != nil {
			return fmt.Errorf("save flashcard schedule: %w", err)
		}
		postponed = next
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrFlashcardNotOwned) || store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, progress.NewServiceError("postpone_review", "transaction failed", err)
	}
	return postponed, nil
}

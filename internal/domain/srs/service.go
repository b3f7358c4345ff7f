package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/dunskii/studyhub/internal/domain"
)

// Common errors
var (
	ErrNilSchedule = errors.New("flashcard schedule cannot be nil")
	ErrInvalidDays = errors.New("postpone days must be at least 1")
)

// Service defines the interface for spaced repetition operations
type Service interface {
	// CalculateNextReview runs one SM-2 step for the given quality (0..5).
	// The schedule is not modified.
	CalculateNextReview(
		schedule *domain.FlashcardSchedule,
		quality int,
		now time.Time,
	) (ReviewResult, error)

	// ApplyReview returns a copy of schedule advanced by one review. The
	// review counter always moves; the correct counter moves when correct is
	// set, independently of whether the quality passed.
	ApplyReview(
		schedule *domain.FlashcardSchedule,
		quality int,
		correct bool,
		now time.Time,
	) (*domain.FlashcardSchedule, ReviewResult, error)

	// PostponeReview pushes the next review time forward by a specified number of days
	PostponeReview(
		schedule *domain.FlashcardSchedule,
		days int,
		now time.Time,
	) (*domain.FlashcardSchedule, error)

	// Params returns the parameters the service schedules with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// CalculateNextReview implements the Service interface
func (s *defaultService) CalculateNextReview(
	schedule *domain.FlashcardSchedule,
	quality int,
	now time.Time,
) (ReviewResult, error) {
	if schedule == nil {
		return ReviewResult{}, ErrNilSchedule
	}
	if err := validateQuality(quality); err != nil {
		return ReviewResult{}, err
	}

	return calculateReview(
		schedule.IntervalDays,
		schedule.EaseFactor,
		schedule.RepetitionCount,
		quality,
		now,
		s.params,
	), nil
}

// ApplyReview implements the Service interface
func (s *defaultService) ApplyReview(
	schedule *domain.FlashcardSchedule,
	quality int,
	correct bool,
	now time.Time,
) (*domain.FlashcardSchedule, ReviewResult, error) {
	result, err := s.CalculateNextReview(schedule, quality, now)
	if err != nil {
		return nil, ReviewResult{}, err
	}

	next := *schedule
	next.IntervalDays = result.IntervalDays
	next.EaseFactor = result.EaseFactor
	next.RepetitionCount = result.RepetitionCount
	nextReview := result.NextReview
	next.NextReview = &nextReview
	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.ReviewCount++
	if correct {
		next.CorrectCount++
	}
	next.UpdatedAt = now

	return &next, result, nil
}

// PostponeReview implements the Service interface
func (s *defaultService) PostponeReview(
	schedule *domain.FlashcardSchedule,
	days int,
	now time.Time,
) (*domain.FlashcardSchedule, error) {
	if schedule == nil {
		return nil, ErrNilSchedule
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := *schedule
	base := now
	if schedule.NextReview != nil && schedule.NextReview.After(now) {
		base = *schedule.NextReview
	}
	postponed := base.AddDate(0, 0, days)
	next.NextReview = &postponed
	next.UpdatedAt = now

	return &next, nil
}

// Params implements the Service interface
func (s *defaultService) Params() Params {
	return *s.params
}

func validateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return domain.NewInvalidInputError(
			"quality",
			fmt.Sprintf("must be between %d and %d, got %d", MinQuality, MaxQuality, quality),
		)
	}
	return nil
}

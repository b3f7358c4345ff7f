package srs

import (
	"math"
	"time"
)

// Quality bounds of an SM-2 recall grade.
const (
	MinQuality = 0
	MaxQuality = 5
)

// ReviewResult is the scheduling outcome of a single review.
type ReviewResult struct {
	IntervalDays    int       `json:"interval_days"`
	EaseFactor      float64   `json:"ease_factor"`
	RepetitionCount int       `json:"repetition_count"`
	NextReview      time.Time `json:"next_review"`
	WasSuccessful   bool      `json:"was_successful"`
}

// calculateNewEaseFactor applies the SM-2 ease update:
//
//	EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))
//
// clamped below at params.MinEaseFactor. The ease factor is updated on every
// review, including failed ones.
func calculateNewEaseFactor(currentEF float64, quality int, params *Params) float64 {
	miss := float64(MaxQuality - quality)
	newEF := currentEF + (0.1 - miss*(0.08+miss*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the next interval in days for the given
// repetition number (already incremented) and the updated ease factor.
//
//   - repetition 1: params.FirstInterval
//   - repetition 2: params.SecondInterval
//   - otherwise: round(previousInterval * easeFactor), at least 1
func calculateNewInterval(previousInterval, repetition int, easeFactor float64, params *Params) int {
	var interval int
	switch repetition {
	case 1:
		interval = params.FirstInterval
	case 2:
		interval = params.SecondInterval
	default:
		interval = int(math.Round(float64(previousInterval) * easeFactor))
	}

	if interval < 1 {
		interval = 1
	}
	if params.MaxIntervalDays > 0 && interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}

	return interval
}

// calculateReview runs one SM-2 step. The caller validates quality.
func calculateReview(
	intervalDays int,
	easeFactor float64,
	repetitionCount int,
	quality int,
	now time.Time,
	params *Params,
) ReviewResult {
	result := ReviewResult{
		EaseFactor: calculateNewEaseFactor(easeFactor, quality, params),
	}

	if quality < params.PassingQuality {
		result.RepetitionCount = 0
		result.IntervalDays = 1
	} else {
		result.WasSuccessful = true
		result.RepetitionCount = repetitionCount + 1
		result.IntervalDays = calculateNewInterval(intervalDays, result.RepetitionCount, result.EaseFactor, params)
	}

	result.NextReview = now.AddDate(0, 0, result.IntervalDays)
	return result
}

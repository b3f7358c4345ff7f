package srs

import "math"

// Difficulty bounds accepted by QualityFromDifficulty.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// fallbackQuality is used when the difficulty is out of range.
const fallbackQuality = 3

// Indexed by difficulty-1. A correct answer on an easy card is a perfect
// recall; a wrong answer on an easy card is a blackout.
var (
	correctQuality   = [MaxDifficulty]int{5, 5, 4, 4, 3}
	incorrectQuality = [MaxDifficulty]int{0, 1, 1, 2, 2}
)

// QualityFromDifficulty maps a self-reported difficulty (1 easiest, 5 hardest)
// and correctness to an SM-2 quality. Out-of-range difficulties map to 3.
func QualityFromDifficulty(difficulty int, wasCorrect bool) int {
	if difficulty < MinDifficulty || difficulty > MaxDifficulty {
		return fallbackQuality
	}
	if wasCorrect {
		return correctQuality[difficulty-1]
	}
	return incorrectQuality[difficulty-1]
}

// MasteryPercent estimates mastery from review history as accuracy weighted by
// a confidence that approaches 1 as reviews accumulate:
//
//	round(100 * correct/reviews * (1 - 0.5^(reviews/2)))
//
// It is 0 when there are no reviews.
func MasteryPercent(reviewCount, correctCount int) int {
	if reviewCount <= 0 {
		return 0
	}
	if correctCount < 0 {
		correctCount = 0
	}
	if correctCount > reviewCount {
		correctCount = reviewCount
	}

	accuracy := float64(correctCount) / float64(reviewCount)
	confidence := 1 - math.Pow(0.5, float64(reviewCount)/2)

	return int(math.Round(100 * accuracy * confidence))
}

package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityFromDifficulty(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		difficulty int
		correct    bool
		expected   int
	}{
		{name: "easy and correct", difficulty: 1, correct: true, expected: 5},
		{name: "medium and correct", difficulty: 3, correct: true, expected: 4},
		{name: "hard and correct", difficulty: 5, correct: true, expected: 3},
		{name: "easy and wrong", difficulty: 1, correct: false, expected: 0},
		{name: "hard and wrong", difficulty: 5, correct: false, expected: 2},
		{name: "below range", difficulty: 0, correct: true, expected: 3},
		{name: "above range", difficulty: 6, correct: false, expected: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, QualityFromDifficulty(tc.difficulty, tc.correct))
		})
	}
}

func TestQualityFromDifficultyIsDeterministic(t *testing.T) {
	t.Parallel()

	for d := -1; d <= 7; d++ {
		for _, correct := range []bool{true, false} {
			q := QualityFromDifficulty(d, correct)
			assert.Equal(t, q, QualityFromDifficulty(d, correct))
			assert.GreaterOrEqual(t, q, MinQuality)
			assert.LessOrEqual(t, q, MaxQuality)
		}
	}
}

func TestMasteryPercent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		reviews  int
		correct  int
		expected int
	}{
		{name: "no reviews", reviews: 0, correct: 0, expected: 0},
		{name: "single correct review", reviews: 1, correct: 1, expected: 29},
		{name: "two correct reviews", reviews: 2, correct: 2, expected: 50},
		{name: "three of four", reviews: 4, correct: 3, expected: 56},
		{name: "ten of ten", reviews: 10, correct: 10, expected: 97},
		{name: "all wrong", reviews: 8, correct: 0, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, MasteryPercent(tc.reviews, tc.correct))
		})
	}
}

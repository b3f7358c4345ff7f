package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateNewEaseFactor(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		quality  int
		expected float64
	}{
		{name: "perfect recall raises ease", current: 2.5, quality: 5, expected: 2.6},
		{name: "quality 4 keeps ease", current: 2.5, quality: 4, expected: 2.5},
		{name: "quality 3 lowers ease", current: 2.5, quality: 3, expected: 2.36},
		{name: "quality 2 lowers ease further", current: 2.5, quality: 2, expected: 2.18},
		{name: "quality 1", current: 2.5, quality: 1, expected: 1.96},
		{name: "blackout", current: 2.5, quality: 0, expected: 1.7},
		{name: "clamped at minimum", current: 1.3, quality: 0, expected: 1.3},
		{name: "clamped near minimum", current: 1.4, quality: 3, expected: 1.3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := calculateNewEaseFactor(tc.current, tc.quality, params)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name       string
		previous   int
		repetition int
		ease       float64
		expected   int
	}{
		{name: "first repetition", previous: 17, repetition: 1, ease: 2.5, expected: 1},
		{name: "second repetition", previous: 1, repetition: 2, ease: 2.5, expected: 6},
		{name: "third repetition multiplies", previous: 6, repetition: 3, ease: 2.8, expected: 17},
		{name: "rounds down below half", previous: 17, repetition: 4, ease: 2.9, expected: 49},
		{name: "never below one", previous: 0, repetition: 5, ease: 1.3, expected: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, calculateNewInterval(tc.previous, tc.repetition, tc.ease, params))
		})
	}
}

func TestCalculateNewIntervalRespectsCap(t *testing.T) {
	t.Parallel()
	params := NewParams(ParamsConfig{MaxIntervalDays: 30})

	assert.Equal(t, 30, calculateNewInterval(20, 5, 2.5, params))
	assert.Equal(t, 6, calculateNewInterval(1, 2, 2.5, params))
}

func TestCalculateReviewSequence(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	interval, ease, reps := 1, 2.5, 0
	expected := []struct {
		interval int
		ease     float64
		reps     int
	}{
		{1, 2.6, 1},
		{6, 2.7, 2},
		{17, 2.8, 3},
		{49, 2.9, 4},
	}

	for i, want := range expected {
		result := calculateReview(interval, ease, reps, 5, now, params)
		assert.True(t, result.WasSuccessful, "review %d", i+1)
		assert.Equal(t, want.interval, result.IntervalDays, "review %d interval", i+1)
		assert.InDelta(t, want.ease, result.EaseFactor, 1e-9, "review %d ease", i+1)
		assert.Equal(t, want.reps, result.RepetitionCount, "review %d repetitions", i+1)
		assert.Equal(t, now.AddDate(0, 0, want.interval), result.NextReview)
		interval, ease, reps = result.IntervalDays, result.EaseFactor, result.RepetitionCount
	}
}

func TestCalculateReviewFailureResets(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	result := calculateReview(17, 2.8, 3, 2, now, params)

	assert.False(t, result.WasSuccessful)
	assert.Equal(t, 0, result.RepetitionCount)
	assert.Equal(t, 1, result.IntervalDays)
	assert.InDelta(t, 2.48, result.EaseFactor, 1e-9, "ease still updated on failure")
	assert.Equal(t, now.AddDate(0, 0, 1), result.NextReview)
}

func TestCalculateReviewBounds(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	for quality := MinQuality; quality <= MaxQuality; quality++ {
		for _, ease := range []float64{1.3, 1.7, 2.5, 3.0} {
			for _, interval := range []int{1, 6, 17, 120} {
				for _, reps := range []int{0, 1, 2, 5} {
					result := calculateReview(interval, ease, reps, quality, now, params)

					assert.GreaterOrEqual(t, result.EaseFactor, params.MinEaseFactor,
						"q=%d ease=%.1f interval=%d reps=%d", quality, ease, interval, reps)
					assert.GreaterOrEqual(t, result.IntervalDays, 1,
						"q=%d ease=%.1f interval=%d reps=%d", quality, ease, interval, reps)
					if quality < 3 {
						assert.False(t, result.WasSuccessful)
						assert.Equal(t, 0, result.RepetitionCount)
						assert.Equal(t, 1, result.IntervalDays)
					}
				}
			}
		}
	}
}

func TestCalculateReviewSteadyQualityFour(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	interval, ease, reps := 1, 2.5, 0
	var intervals []int
	for i := 0; i < 6; i++ {
		result := calculateReview(interval, ease, reps, 4, now, params)
		require.True(t, result.WasSuccessful)
		intervals = append(intervals, result.IntervalDays)
		interval, ease, reps = result.IntervalDays, result.EaseFactor, result.RepetitionCount
	}

	assert.Equal(t, []int{1, 6}, intervals[:2])
	assert.Greater(t, intervals[2], 6)
	for i := 3; i < len(intervals); i++ {
		assert.GreaterOrEqual(t, intervals[i], intervals[i-1], "intervals %v", intervals)
	}
	assert.Equal(t, []int{1, 6, 15, 38, 95, 238}, intervals)
}

func TestCalculateReviewScenarios(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name           string
		interval       int
		ease           float64
		reps           int
		quality        int
		wantInterval   int
		wantReps       int
		wantSuccessful bool
		wantEaseAbove  float64
	}{
		{
			name:     "new card recalled perfectly",
			interval: 1, ease: 2.5, reps: 0, quality: 5,
			wantInterval: 1, wantReps: 1, wantSuccessful: true, wantEaseAbove: 2.5,
		},
		{
			name:     "mature card forgotten",
			interval: 6, ease: 2.5, reps: 2, quality: 2,
			wantInterval: 1, wantReps: 0, wantSuccessful: false, wantEaseAbove: params.MinEaseFactor,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := calculateReview(tc.interval, tc.ease, tc.reps, tc.quality, now, params)

			assert.Equal(t, tc.wantInterval, result.IntervalDays)
			assert.Equal(t, tc.wantReps, result.RepetitionCount)
			assert.Equal(t, tc.wantSuccessful, result.WasSuccessful)
			assert.Greater(t, result.EaseFactor, tc.wantEaseAbove)
			assert.Equal(t, now.AddDate(0, 0, tc.wantInterval), result.NextReview)
		})
	}
}

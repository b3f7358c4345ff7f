package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	t.Parallel()
	calc := NewLevelCalculator(MustDefaultRuleSet().Levels)

	testCases := []struct {
		name     string
		xp       int
		expected int
	}{
		{"zero XP", 0, 1},
		{"negative XP", -10, 1},
		{"just below level 2", 99, 1},
		{"exactly level 2", 100, 2},
		{"mid table", 5000, 10},
		{"max threshold", 34500, 20},
		{"beyond max", 1_000_000, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, calc.LevelForXP(tc.xp))
		})
	}
}

func TestLevelForXPAtEveryThreshold(t *testing.T) {
	t.Parallel()
	table := MustDefaultRuleSet().Levels
	calc := NewLevelCalculator(table)

	for i, threshold := range table.Thresholds {
		assert.Equal(t, i+1, calc.LevelForXP(threshold), "threshold %d", threshold)
	}
}

func TestLevelForXPMonotonic(t *testing.T) {
	t.Parallel()
	calc := NewLevelCalculator(MustDefaultRuleSet().Levels)

	prev := calc.LevelForXP(0)
	for xp := 1; xp <= 40000; xp += 7 {
		level := calc.LevelForXP(xp)
		require.GreaterOrEqual(t, level, prev, "level dropped at %d XP", xp)
		prev = level
	}
}

func TestProgressPercent(t *testing.T) {
	t.Parallel()
	calc := NewLevelCalculator(MustDefaultRuleSet().Levels)

	assert.InDelta(t, 0, calc.ProgressPercent(0), 1e-9)
	assert.InDelta(t, 50, calc.ProgressPercent(50), 1e-9)
	assert.InDelta(t, 50, calc.ProgressPercent(175), 1e-9)
	assert.InDelta(t, 100, calc.ProgressPercent(34500), 1e-9)
	assert.InDelta(t, 100, calc.ProgressPercent(99999), 1e-9)
	assert.InDelta(t, 0, calc.ProgressPercent(-20), 1e-9)
}

func TestTitleForLevel(t *testing.T) {
	t.Parallel()
	calc := NewLevelCalculator(MustDefaultRuleSet().Levels)

	assert.Equal(t, "Novice", calc.TitleForLevel(1, ""))
	assert.Equal(t, "Studious Scholar", calc.TitleForLevel(7, ""))
	assert.Equal(t, "Equation Solver", calc.TitleForLevel(7, "MATH"))
	assert.Equal(t, "Number Cruncher", calc.TitleForLevel(3, "MATH"))
	assert.Equal(t, "Math Legend", calc.TitleForLevel(20, "MATH"))
	assert.Equal(t, "Apprentice", calc.TitleForLevel(3, "HISTORY"))
}

func TestTitleForLevelFallbacks(t *testing.T) {
	t.Parallel()
	calc := NewLevelCalculator(LevelTable{
		Thresholds:    []int{0, 10, 20, 30, 40},
		Titles:        map[int]string{1: "Rookie", 4: "Veteran"},
		SubjectTitles: map[string]map[int]string{"ART": {3: "Painter"}},
	})

	assert.Equal(t, "Rookie", calc.TitleForLevel(3, ""), "unmapped level uses the nearest lower title")
	assert.Equal(t, "Veteran", calc.TitleForLevel(5, ""))
	assert.Equal(t, "Rookie", calc.TitleForLevel(2, "ART"), "subject table below its first entry falls back")
	assert.Equal(t, "Painter", calc.TitleForLevel(4, "ART"))
	assert.Equal(t, "Rookie", calc.TitleForLevel(0, ""))
}

func TestLevelInfo(t *testing.T) {
	t.Parallel()
	calc := NewLevelCalculator(MustDefaultRuleSet().Levels)

	info := calc.LevelInfo(175, "")
	assert.Equal(t, 2, info.Level)
	assert.Equal(t, "Beginner", info.Title)
	assert.Equal(t, 100, info.CurrentThreshold)
	require.NotNil(t, info.NextThreshold)
	assert.Equal(t, 250, *info.NextThreshold)
	assert.Equal(t, 75, info.XPToNextLevel)
	assert.False(t, info.IsMaxLevel)

	top := calc.LevelInfo(34500, "")
	assert.Equal(t, 20, top.Level)
	assert.True(t, top.IsMaxLevel)
	assert.Nil(t, top.NextThreshold)
	assert.InDelta(t, 100, top.ProgressPercent, 1e-9)
}

package gamification

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/domain"
)

func TestDefaultRuleSet(t *testing.T) {
	t.Parallel()

	rules, err := DefaultRuleSet()
	require.NoError(t, err)

	assert.Len(t, rules.Levels.Thresholds, 20)
	assert.Equal(t, 34500, rules.Levels.Thresholds[19])
	assert.Equal(t, []int{3, 7, 14, 30, 60, 100, 180, 365}, rules.StreakMilestones)

	review, ok := rules.Activity(domain.ActivityFlashcardReview)
	require.True(t, ok)
	require.NotNil(t, review.MaxPerDay)
	assert.Equal(t, 500, *review.MaxPerDay)

	reward, ok := rules.Activity(domain.ActivityAchievementUnlocked)
	require.True(t, ok)
	assert.Nil(t, reward.MaxPerDay, "achievement rewards are uncapped")

	def, ok := rules.Achievement("math_whiz")
	require.True(t, ok)
	assert.Equal(t, "MATH", def.SubjectCode)
	assert.True(t, def.Active)
	assert.Equal(t, 500.0, def.Requirements[domain.StatSubjectXP])
}

func TestRuleSetValidate(t *testing.T) {
	t.Parallel()

	limit := 10
	negative := -1

	testCases := []struct {
		name   string
		mutate func(r *RuleSet)
	}{
		{"thresholds not starting at zero", func(r *RuleSet) { r.Levels.Thresholds[0] = 5 }},
		{"thresholds not increasing", func(r *RuleSet) { r.Levels.Thresholds[3] = r.Levels.Thresholds[2] }},
		{"empty thresholds", func(r *RuleSet) { r.Levels.Thresholds = nil }},
		{"multiplier above ceiling", func(r *RuleSet) { r.StreakMultipliers[0].Multiplier = 1.6 }},
		{"multiplier decreasing", func(r *RuleSet) { r.StreakMultipliers[1].Multiplier = 1.05 }},
		{"milestones unsorted", func(r *RuleSet) { r.StreakMilestones = []int{7, 3} }},
		{"negative base XP", func(r *RuleSet) { r.Activities[0].BaseXP = -5 }},
		{"negative cap", func(r *RuleSet) { r.Activities[0].MaxPerDay = &negative }},
		{"duplicate activity", func(r *RuleSet) {
			r.Activities = append(r.Activities, ActivityRule{Type: domain.ActivityNoteUpload, MaxPerDay: &limit})
		}},
		{"duplicate achievement", func(r *RuleSet) { r.Achievements = append(r.Achievements, r.Achievements[0]) }},
		{"negative reward", func(r *RuleSet) { r.Achievements[0].XPReward = -1 }},
		{"negative session XP", func(r *RuleSet) { r.SessionXP.PerCorrect = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rules := MustDefaultRuleSet()
			tc.mutate(rules)
			err := rules.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRuleSet)
		})
	}
}

func TestLoadRuleSet(t *testing.T) {
	t.Parallel()

	t.Run("empty path uses embedded defaults", func(t *testing.T) {
		t.Parallel()
		rules, err := LoadRuleSet("")
		require.NoError(t, err)
		assert.NotEmpty(t, rules.Achievements)
	})

	t.Run("override file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := `
activities:
  - type: note_upload
    base_xp: 40
levels:
  thresholds: [0, 10, 30]
  titles: {1: Rookie, 3: Veteran}
streak_multipliers:
  - {min_streak: 5, multiplier: 1.25}
  - {min_streak: 2, multiplier: 1.1}
streak_milestones: [2, 5]
session_xp: {per_flashcard: 1, per_correct: 1, perfect_bonus: 0, completion_bonus: 0}
achievements:
  - code: one
    requirements: {notes_uploaded: 1}
    active: true
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rules, err := LoadRuleSet(path)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 10, 30}, rules.Levels.Thresholds)
		// steps are sorted by streak on load
		assert.Equal(t, 2, rules.StreakMultipliers[0].MinStreak)
		note, ok := rules.Activity(domain.ActivityNoteUpload)
		require.True(t, ok)
		assert.Nil(t, note.MaxPerDay)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadRuleSet(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		_, err := ParseRuleSet([]byte("levels: [this is: not valid"))
		assert.ErrorIs(t, err, ErrInvalidRuleSet)
	})
}

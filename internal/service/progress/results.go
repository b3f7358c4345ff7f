package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
)

// SessionResult summarises what a completed session changed.
type SessionResult struct {
	SessionID uuid.UUID `json:"session_id"`
	// XPEarned is the session award plus any perfect-session bonus, after
	// caps and multiplier. Achievement rewards are reported separately in
	// BonusXP.
	XPEarned             int                          `json:"xp_earned"`
	BonusXP              int                          `json:"bonus_xp"`
	MultiplierApplied    float64                      `json:"multiplier_applied"`
	TotalXP              int                          `json:"total_xp"`
	NewStreak            int                          `json:"new_streak"`
	LongestStreak        int                          `json:"longest_streak"`
	MilestonesReached    []int                        `json:"milestones_reached"`
	AchievementsUnlocked []domain.UnlockedAchievement `json:"achievements_unlocked"`
	LevelUp              bool                         `json:"level_up"`
	Level                int                          `json:"level"`
	NewLevelTitle        string                       `json:"new_level_title,omitempty"`
}

// ReviewXP is the XP credited for one reviewed flashcard.
type ReviewXP struct {
	Review   gamification.XPAward  `json:"review"`
	Correct  *gamification.XPAward `json:"correct,omitempty"`
	XPEarned int                   `json:"xp_earned"`
	TotalXP  int                   `json:"total_xp"`
	LevelUp  bool                  `json:"level_up"`
	Level    int                   `json:"level"`
}

// SubjectSummary is a learner's standing in one subject.
type SubjectSummary struct {
	SubjectID      uuid.UUID `json:"subject_id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	XPEarned       int       `json:"xp_earned"`
	MasteryPercent int       `json:"mastery_percent"`
}

// Summary is the read-only progress view of a learner.
type Summary struct {
	LearnerID             uuid.UUID                   `json:"learner_id"`
	Level                 gamification.LevelInfo      `json:"level"`
	CurrentStreak         int                         `json:"current_streak"`
	LongestStreak         int                         `json:"longest_streak"`
	LastActiveDate        domain.Date                 `json:"last_active_date"`
	StreakMultiplier      float64                     `json:"streak_multiplier"`
	NextMilestone         *int                        `json:"next_milestone,omitempty"`
	DailyRemaining        map[domain.ActivityType]int `json:"daily_xp_remaining"`
	AchievementsUnlocked  int                         `json:"achievements_unlocked"`
	AchievementsAvailable int                         `json:"achievements_available"`
	Subject               *SubjectSummary             `json:"subject,omitempty"`
}

// AchievementStatus pairs a definition with the learner's progress on it.
type AchievementStatus struct {
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	XPReward        int        `json:"xp_reward"`
	SubjectCode     string     `json:"subject_code,omitempty"`
	Unlocked        bool       `json:"unlocked"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`
	ProgressPercent int        `json:"progress_percent"`
	ProgressLabel   string     `json:"progress_label"`
}

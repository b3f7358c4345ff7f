package domain

import "time"

// AchievementDefinition describes an unlockable achievement. Requirements map a
// statistic key to the minimum value it must reach; all must hold.
type AchievementDefinition struct {
	Code         string             `json:"code" yaml:"code"`
	Name         string             `json:"name" yaml:"name"`
	Description  string             `json:"description" yaml:"description"`
	Category     string             `json:"category" yaml:"category"`
	Requirements map[string]float64 `json:"requirements" yaml:"requirements"`
	XPReward     int                `json:"xp_reward" yaml:"xp_reward"`
	SubjectCode  string             `json:"subject_code,omitempty" yaml:"subject_code"`
	Active       bool               `json:"active" yaml:"active"`
}

// UnlockedAchievement records when an achievement was unlocked.
type UnlockedAchievement struct {
	Code       string    `json:"code"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

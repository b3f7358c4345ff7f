package store

import (
	"context"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
)

// ReferenceDataStore serves the read-only rule tables and catalogues. Results
// are cacheable; see the refdata package.
type ReferenceDataStore interface {
	GetActivityRules(ctx context.Context) ([]gamification.ActivityRule, error)
	GetLevelTable(ctx context.Context) (gamification.LevelTable, error)
	GetStreakMultiplierTable(ctx context.Context) (gamification.StreakMultiplierTable, error)
	GetStreakMilestones(ctx context.Context) ([]int, error)
	GetSessionXPRules(ctx context.Context) (gamification.SessionXPRules, error)
	GetAchievementDefinitions(ctx context.Context) ([]domain.AchievementDefinition, error)
	GetSubjects(ctx context.Context) ([]domain.Subject, error)
}

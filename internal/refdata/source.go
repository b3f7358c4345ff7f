package refdata

import (
	"context"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
)

// RuleSetSource serves reference data from an in-memory rule set and subject
// list. It backs deployments where the rule tables come from the rules file
// and tests that need a ReferenceDataStore.
type RuleSetSource struct {
	Rules    *gamification.RuleSet
	Subjects []domain.Subject
}

func (s RuleSetSource) GetActivityRules(context.Context) ([]gamification.ActivityRule, error) {
	return s.Rules.Activities, nil
}

func (s RuleSetSource) GetLevelTable(context.Context) (gamification.LevelTable, error) {
	return s.Rules.Levels, nil
}

func (s RuleSetSource) GetStreakMultiplierTable(context.Context) (gamification.StreakMultiplierTable, error) {
	return s.Rules.StreakMultipliers, nil
}

func (s RuleSetSource) GetStreakMilestones(context.Context) ([]int, error) {
	return s.Rules.StreakMilestones, nil
}

func (s RuleSetSource) GetSessionXPRules(context.Context) (gamification.SessionXPRules, error) {
	return s.Rules.SessionXP, nil
}

func (s RuleSetSource) GetAchievementDefinitions(context.Context) ([]domain.AchievementDefinition, error) {
	return s.Rules.Achievements, nil
}

func (s RuleSetSource) GetSubjects(context.Context) ([]domain.Subject, error) {
	return s.Subjects, nil
}

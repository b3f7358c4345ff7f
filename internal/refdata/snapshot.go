package refdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/store"
)

// Snapshot is one consistent view of the reference data together with the
// calculators built from it. It is never modified after Build returns.
type Snapshot struct {
	Rules        *gamification.RuleSet
	Subjects     []domain.Subject
	Ledger       *gamification.Ledger
	Achievements *gamification.AchievementEngine
	LoadedAt     time.Time

	byCode map[string]domain.Subject
	byID   map[uuid.UUID]domain.Subject
}

// Build reads every table from source and assembles a validated snapshot.
func Build(ctx context.Context, source store.ReferenceDataStore, now time.Time) (*Snapshot, error) {
	activities, err := source.GetActivityRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load activity rules: %w", err)
	}
	levels, err := source.GetLevelTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load level table: %w", err)
	}
	multipliers, err := source.GetStreakMultiplierTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load streak multipliers: %w", err)
	}
	milestones, err := source.GetStreakMilestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("load streak milestones: %w", err)
	}
	sessionXP, err := source.GetSessionXPRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session XP rules: %w", err)
	}
	achievements, err := source.GetAchievementDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load achievement definitions: %w", err)
	}
	subjects, err := source.GetSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	steps := make(gamification.StreakMultiplierTable, len(multipliers))
	copy(steps, multipliers)
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinStreak < steps[j].MinStreak })

	rules := &gamification.RuleSet{
		Activities:        activities,
		Levels:            levels,
		StreakMultipliers: steps,
		StreakMilestones:  milestones,
		SessionXP:         sessionXP,
		Achievements:      achievements,
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return NewSnapshot(rules, subjects, now), nil
}

// NewSnapshot wraps an already validated rule set.
func NewSnapshot(rules *gamification.RuleSet, subjects []domain.Subject, now time.Time) *Snapshot {
	ledger := gamification.NewLedger(rules)
	s := &Snapshot{
		Rules:        rules,
		Subjects:     subjects,
		Ledger:       ledger,
		Achievements: gamification.NewAchievementEngine(rules.Achievements, ledger),
		LoadedAt:     now,
		byCode:       make(map[string]domain.Subject, len(subjects)),
		byID:         make(map[uuid.UUID]domain.Subject, len(subjects)),
	}
	for _, subj := range subjects {
		s.byCode[strings.ToUpper(subj.Code)] = subj
		s.byID[subj.ID] = subj
	}
	return s
}

// SubjectByCode looks a subject up by code, ignoring case.
func (s *Snapshot) SubjectByCode(code string) (domain.Subject, bool) {
	subj, ok := s.byCode[strings.ToUpper(code)]
	return subj, ok
}

// SubjectByID looks a subject up by ID.
func (s *Snapshot) SubjectByID(id uuid.UUID) (domain.Subject, bool) {
	subj, ok := s.byID[id]
	return subj, ok
}

// SubjectCode returns the code of the subject with the given ID, or "" when
// id is nil or unknown.
func (s *Snapshot) SubjectCode(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return s.byID[*id].Code
}

// ResolveSubject satisfies gamification.SubjectResolver.
func (s *Snapshot) ResolveSubject(code string) *uuid.UUID {
	subj, ok := s.SubjectByCode(code)
	if !ok {
		return nil
	}
	id := subj.ID
	return &id
}

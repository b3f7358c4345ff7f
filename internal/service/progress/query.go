package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/refdata"
	"github.com/dunskii/studyhub/internal/store"
)

// GetProgress implements Service.GetProgress. It takes no locks and reads
// committed data only.
func (s *service) GetProgress(ctx context.Context, learnerID uuid.UUID, subjectCode string) (*Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	snapshot, state, err := s.load(ctx, "get_progress", learnerID)
	if err != nil {
		return nil, err
	}

	var subject *SubjectSummary
	if subjectCode != "" {
		subj, ok := snapshot.SubjectByCode(subjectCode)
		if !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrSubjectNotFound, subjectCode)
		}
		subjectCode = subj.Code
		subject = &SubjectSummary{SubjectID: subj.ID, Code: subj.Code, Name: subj.Name}
		p, err := s.reads.SubjectProgress.Get(ctx, learnerID, subj.ID)
		switch {
		case err == nil:
			subject.XPEarned = p.XPEarned
			subject.MasteryPercent = p.MasteryPercent
		case !errors.Is(err, store.ErrSubjectProgressNotFound):
			log.Error("failed to load subject progress",
				slog.String("learner_id", learnerID.String()),
				slog.String("error", err.Error()))
			return nil, NewServiceError("get_progress", "failed to load subject progress", err)
		}
	}

	today := s.clock.Today()
	streaks := snapshot.Ledger.Streaks()
	current := streaks.CurrentStreak(state.Streak, today)

	summary := &Summary{
		LearnerID:             learnerID,
		Level:                 snapshot.Ledger.Levels().LevelInfo(state.TotalXP, subjectCode),
		CurrentStreak:         current,
		LongestStreak:         state.Streak.Longest,
		LastActiveDate:        state.Streak.LastActiveDate,
		StreakMultiplier:      streaks.MultiplierForStreak(current),
		DailyRemaining:        make(map[domain.ActivityType]int),
		AchievementsUnlocked:  len(state.Achievements),
		AchievementsAvailable: countActive(snapshot.Rules.Achievements),
		Subject:               subject,
	}
	if next, ok := streaks.NextMilestone(current); ok {
		summary.NextMilestone = &next
	}
	for _, rule := range snapshot.Rules.Activities {
		if remaining, capped := snapshot.Ledger.DailyRemaining(state, rule.Type, today); capped {
			summary.DailyRemaining[rule.Type] = remaining
		}
	}
	return summary, nil
}

// ListAchievements implements Service.ListAchievements.
func (s *service) ListAchievements(ctx context.Context, learnerID uuid.UUID) ([]AchievementStatus, error) {
	snapshot, state, err := s.load(ctx, "list_achievements", learnerID)
	if err != nil {
		return nil, err
	}

	stats, err := s.reads.Stats.GetLearnerStats(ctx, learnerID)
	if err != nil {
		return nil, NewServiceError("list_achievements", "failed to load learner stats", err)
	}
	streaks := snapshot.Ledger.Streaks()
	stats = stats.WithOverlay(map[string]float64{
		domain.StatTotalXP:       float64(state.TotalXP),
		domain.StatLevel:         float64(state.Level),
		domain.StatCurrentStreak: float64(streaks.CurrentStreak(state.Streak, s.clock.Today())),
		domain.StatLongestStreak: float64(state.Streak.Longest),
	})

	statuses := make([]AchievementStatus, 0, len(snapshot.Rules.Achievements))
	for _, def := range snapshot.Rules.Achievements {
		unlockedAt, unlocked := state.Achievements[def.Code]
		if !def.Active && !unlocked {
			continue
		}
		percent, label := gamification.ProgressTowards(def, stats, unlocked)
		status := AchievementStatus{
			Code:            def.Code,
			Name:            def.Name,
			Description:     def.Description,
			Category:        def.Category,
			XPReward:        def.XPReward,
			SubjectCode:     def.SubjectCode,
			Unlocked:        unlocked,
			ProgressPercent: percent,
			ProgressLabel:   label,
		}
		if unlocked {
			at := unlockedAt
			status.UnlockedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *service) load(ctx context.Context, op string, learnerID uuid.UUID) (*refdata.Snapshot, *domain.GamificationState, error) {
	if learnerID == uuid.Nil {
		return nil, nil, domain.NewInvalidInputError("learner_id", "must be set")
	}
	snapshot, err := s.refdata.Get(ctx)
	if err != nil {
		return nil, nil, NewServiceError(op, "failed to load reference data", err)
	}
	state, err := s.reads.Gamification.Get(ctx, learnerID)
	if err != nil {
		if isExpected(err) {
			return nil, nil, err
		}
		return nil, nil, NewServiceError(op, "failed to load gamification state", err)
	}
	return snapshot, state, nil
}

func countActive(defs []domain.AchievementDefinition) int {
	n := 0
	for _, d := range defs {
		if d.Active {
			n++
		}
	}
	return n
}

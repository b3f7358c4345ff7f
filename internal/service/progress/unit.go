package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/refdata"
	"github.com/dunskii/studyhub/internal/store"
)

// Unit is one learner's unit of work inside a transaction. It holds a working
// copy of the gamification state; nothing reaches the store until the
// surrounding Run commits, and a failing unit leaves no trace.
type Unit struct {
	Stores    store.Stores
	Snapshot  *refdata.Snapshot
	LearnerID uuid.UUID
	Now       time.Time
	Today     domain.Date

	svc        *service
	logger     *slog.Logger
	state      *domain.GamificationState
	startLevel int
	dirty      bool

	subjects map[uuid.UUID]*domain.SubjectProgress
	stats    *domain.LearnerStats

	awards     []gamification.XPAward
	milestones []int
	unlocks    []gamification.Unlock
}

// State returns the working state. Callers must not modify it directly.
func (u *Unit) State() *domain.GamificationState {
	return u.state
}

// AwardXP credits req through the ledger and, for subject-scoped awards, the
// subject's progress. Unknown activities produce a zero award and a warning.
func (u *Unit) AwardXP(ctx context.Context, req gamification.AwardRequest) (gamification.XPAward, error) {
	var progress *domain.SubjectProgress
	if req.SubjectID != nil {
		p, err := u.SubjectForUpdate(ctx, *req.SubjectID)
		if err != nil {
			return gamification.XPAward{}, err
		}
		progress = p
	}

	award, err := u.Snapshot.Ledger.Award(u.state, req, u.Today)
	if err != nil {
		return gamification.XPAward{}, err
	}

	if award.UnknownActivity {
		u.logger.WarnContext(ctx, "unknown activity type, no XP awarded",
			slog.String("activity_type", string(req.Activity)))
		u.svc.metrics.UnknownKey("activity")
		return award, nil
	}
	if award.CappedXP == 0 {
		u.logger.DebugContext(ctx, "daily XP cap reached",
			slog.String("activity_type", string(req.Activity)))
		u.awards = append(u.awards, award)
		return award, nil
	}

	u.dirty = true
	if progress != nil {
		progress.XPEarned += award.XPEarned
	}
	u.awards = append(u.awards, award)
	return award, nil
}

// AwardActivity awards the base XP the rule table assigns to activity.
func (u *Unit) AwardActivity(
	ctx context.Context,
	activity domain.ActivityType,
	subjectID *uuid.UUID,
	applyMultiplier bool,
) (gamification.XPAward, error) {
	amount := 0
	if rule, ok := u.Snapshot.Rules.Activity(activity); ok {
		amount = rule.BaseXP
	}
	return u.AwardXP(ctx, gamification.AwardRequest{
		Activity:        activity,
		Amount:          amount,
		SubjectID:       subjectID,
		ApplyMultiplier: applyMultiplier,
	})
}

// RecordActivity advances the streak for date.
func (u *Unit) RecordActivity(date domain.Date) gamification.StreakUpdate {
	update := u.Snapshot.Ledger.Streaks().RecordActivity(u.state.Streak, date)
	if !update.Changed {
		return update
	}
	u.state.Streak = update.Streak
	u.dirty = true
	u.milestones = append(u.milestones, update.MilestonesReached...)
	return update
}

// Stats returns the learner statistics the achievement engine sees. The
// store is read once per unit; values this unit has changed but not yet
// written are overlaid on each call.
func (u *Unit) Stats(ctx context.Context) (domain.LearnerStats, error) {
	if u.stats == nil {
		stats, err := u.Stores.Stats.GetLearnerStats(ctx, u.LearnerID)
		if err != nil {
			return domain.LearnerStats{}, fmt.Errorf("load learner stats: %w", err)
		}
		u.stats = &stats
	}

	streaks := u.Snapshot.Ledger.Streaks()
	out := u.stats.WithOverlay(map[string]float64{
		domain.StatTotalXP:       float64(u.state.TotalXP),
		domain.StatLevel:         float64(u.state.Level),
		domain.StatCurrentStreak: float64(streaks.CurrentStreak(u.state.Streak, u.Today)),
		domain.StatLongestStreak: float64(u.state.Streak.Longest),
	})
	for id, p := range u.subjects {
		subj, ok := u.Snapshot.SubjectByID(id)
		if !ok {
			continue
		}
		scoped, ok := out.Subjects[subj.Code]
		if !ok {
			scoped = make(map[string]float64)
			out.Subjects[subj.Code] = scoped
		}
		scoped[domain.StatSubjectXP] = float64(p.XPEarned)
		scoped[domain.StatMasteryPercent] = float64(p.MasteryPercent)
	}
	return out, nil
}

// CheckAndUnlock evaluates every achievement once against Stats and pays the
// rewards of those unlocked.
func (u *Unit) CheckAndUnlock(ctx context.Context) (gamification.CheckResult, error) {
	stats, err := u.Stats(ctx)
	if err != nil {
		return gamification.CheckResult{}, err
	}

	result, err := u.Snapshot.Achievements.CheckAndUnlock(u.state, stats, u.Now, u.Today, u.Snapshot.ResolveSubject)
	if err != nil {
		return gamification.CheckResult{}, err
	}

	for _, unknown := range result.UnknownKeys {
		u.logger.WarnContext(ctx, "unknown achievement requirement treated as satisfied",
			slog.String("achievement", unknown.AchievementCode),
			slog.String("requirement", unknown.Key))
		u.svc.metrics.UnknownKey("requirement")
	}

	for _, unlock := range result.Unlocked {
		u.dirty = true
		u.unlocks = append(u.unlocks, unlock)
		award := unlock.Award
		if award.CappedXP == 0 {
			continue
		}
		u.awards = append(u.awards, award)
		if award.SubjectID != nil {
			p, err := u.SubjectForUpdate(ctx, *award.SubjectID)
			if err != nil {
				return gamification.CheckResult{}, err
			}
			p.XPEarned += award.XPEarned
		}
	}
	return result, nil
}

// SubjectForUpdate loads and locks the learner's progress in a subject,
// starting empty progress when none exists. Progress returned here is written
// back when the unit commits.
func (u *Unit) SubjectForUpdate(ctx context.Context, subjectID uuid.UUID) (*domain.SubjectProgress, error) {
	if p, ok := u.subjects[subjectID]; ok {
		return p, nil
	}
	if _, ok := u.Snapshot.SubjectByID(subjectID); !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSubjectNotFound, subjectID)
	}

	p, err := u.Stores.SubjectProgress.GetForUpdate(ctx, u.LearnerID, subjectID)
	if errors.Is(err, store.ErrSubjectProgressNotFound) {
		p = domain.NewSubjectProgress(u.LearnerID, subjectID)
	} else if err != nil {
		return nil, fmt.Errorf("load subject progress: %w", err)
	}
	u.subjects[subjectID] = p
	return p, nil
}

// LevelUp reports whether the unit raised the learner's level.
func (u *Unit) LevelUp() bool {
	return u.state.Level > u.startLevel
}

// flush writes every change of the unit through the transaction's stores.
func (u *Unit) flush(ctx context.Context) error {
	ids := make([]uuid.UUID, 0, len(u.subjects))
	for id := range u.subjects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if err := u.Stores.SubjectProgress.Save(ctx, u.subjects[id]); err != nil {
			return fmt.Errorf("save subject progress: %w", err)
		}
	}

	if !u.dirty {
		return nil
	}
	if err := u.Stores.Gamification.Save(ctx, u.state); err != nil {
		return fmt.Errorf("save gamification state: %w", err)
	}
	return nil
}

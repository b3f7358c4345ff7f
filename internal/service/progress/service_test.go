package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/events"
	"github.com/dunskii/studyhub/internal/store"
)

func TestSessionComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(f *fixture)
		session func(f *fixture) domain.StudySession
		check   func(t *testing.T, f *fixture, r *SessionResult)
	}{
		{
			name:  "first session unlocks first steps and levels up",
			setup: func(f *fixture) {},
			session: func(f *fixture) domain.StudySession {
				return domain.StudySession{ID: uuid.New(), LearnerID: f.learner, FlashcardsReviewed: 10, FlashcardsCorrect: 8, DurationMinutes: 20}
			},
			check: func(t *testing.T, f *fixture, r *SessionResult) {
				assert.Equal(t, 115, r.XPEarned)
				assert.Equal(t, 10, r.BonusXP)
				assert.Equal(t, 125, r.TotalXP)
				assert.Equal(t, 1, r.NewStreak)
				assert.Empty(t, r.MilestonesReached)
				require.Len(t, r.AchievementsUnlocked, 1)
				assert.Equal(t, "first_steps", r.AchievementsUnlocked[0].Code)
				assert.True(t, r.LevelUp)
				assert.Equal(t, 2, r.Level)
				assert.Equal(t, "Beginner", r.NewLevelTitle)
				assert.ElementsMatch(t, []events.Type{events.TypeLevelUp, events.TypeAchievementUnlocked}, f.handler.types())
			},
		},
		{
			name: "third consecutive day reaches milestone and on a roll",
			setup: func(f *fixture) {
				f.putState(func(s *domain.GamificationState) {
					s.TotalXP = 200
					s.Streak = domain.Streak{Current: 2, Longest: 2, LastActiveDate: f.yesterday()}
					s.Achievements["first_steps"] = f.unlockedAt()
				})
			},
			session: func(f *fixture) domain.StudySession {
				return domain.StudySession{ID: uuid.New(), LearnerID: f.learner, DurationMinutes: 10}
			},
			check: func(t *testing.T, f *fixture, r *SessionResult) {
				assert.Equal(t, 25, r.XPEarned)
				assert.InDelta(t, 1.0, r.MultiplierApplied, 1e-9)
				assert.Equal(t, 15, r.BonusXP)
				assert.Equal(t, 240, r.TotalXP)
				assert.Equal(t, 3, r.NewStreak)
				assert.Equal(t, []int{3}, r.MilestonesReached)
				require.Len(t, r.AchievementsUnlocked, 1)
				assert.Equal(t, "on_a_roll", r.AchievementsUnlocked[0].Code)
				assert.False(t, r.LevelUp)
				assert.Empty(t, r.NewLevelTitle)
				assert.ElementsMatch(t, []events.Type{events.TypeStreakMilestone, events.TypeAchievementUnlocked}, f.handler.types())
			},
		},
		{
			name: "streak multiplier applies to perfect session",
			setup: func(f *fixture) {
				f.putState(func(s *domain.GamificationState) {
					s.TotalXP = 300
					s.Streak = domain.Streak{Current: 5, Longest: 5, LastActiveDate: f.yesterday()}
					s.Achievements["first_steps"] = f.unlockedAt()
					s.Achievements["on_a_roll"] = f.unlockedAt()
				})
			},
			session: func(f *fixture) domain.StudySession {
				return domain.StudySession{ID: uuid.New(), LearnerID: f.learner, FlashcardsReviewed: 10, FlashcardsCorrect: 10, DurationMinutes: 15}
			},
			check: func(t *testing.T, f *fixture, r *SessionResult) {
				// floor((50 + 50 + 25) * 1.1) + floor(50 * 1.1)
				assert.Equal(t, 192, r.XPEarned)
				assert.InDelta(t, 1.1, r.MultiplierApplied, 1e-9)
				assert.Equal(t, 492, r.TotalXP)
				assert.Equal(t, 6, r.NewStreak)
				assert.Empty(t, r.AchievementsUnlocked)
				assert.Equal(t, 3, r.Level)

				daily := f.store.State(f.learner).DailyXP.Earned
				assert.Equal(t, 125, daily[domain.ActivityStudySession])
				assert.Equal(t, 50, daily[domain.ActivityPerfectSession])
			},
		},
		{
			name: "perfect bonus stops at its own daily cap",
			setup: func(f *fixture) {
				f.putState(func(s *domain.GamificationState) {
					s.TotalXP = 300
					s.Achievements["first_steps"] = f.unlockedAt()
					s.DailyXP.Date = f.clock.Today()
					s.DailyXP.Earned[domain.ActivityPerfectSession] = 180
				})
			},
			session: func(f *fixture) domain.StudySession {
				return domain.StudySession{ID: uuid.New(), LearnerID: f.learner, FlashcardsReviewed: 4, FlashcardsCorrect: 4}
			},
			check: func(t *testing.T, f *fixture, r *SessionResult) {
				// (20 + 20 + 25) for the session, 20 left of the 200 perfect cap
				assert.Equal(t, 85, r.XPEarned)
				assert.Equal(t, 385, r.TotalXP)

				daily := f.store.State(f.learner).DailyXP.Earned
				assert.Equal(t, 200, daily[domain.ActivityPerfectSession])
				assert.Equal(t, 65, daily[domain.ActivityStudySession])
			},
		},
		{
			name: "broken streak earns no multiplier and restarts",
			setup: func(f *fixture) {
				f.putState(func(s *domain.GamificationState) {
					s.TotalXP = 300
					s.Streak = domain.Streak{Current: 10, Longest: 12, LastActiveDate: f.clock.Today().AddDays(-5)}
					s.Achievements["first_steps"] = f.unlockedAt()
					s.Achievements["on_a_roll"] = f.unlockedAt()
					s.Achievements["week_warrior"] = f.unlockedAt()
				})
			},
			session: func(f *fixture) domain.StudySession {
				return domain.StudySession{ID: uuid.New(), LearnerID: f.learner}
			},
			check: func(t *testing.T, f *fixture, r *SessionResult) {
				assert.Equal(t, 25, r.XPEarned)
				assert.InDelta(t, 1.0, r.MultiplierApplied, 1e-9)
				assert.Equal(t, 1, r.NewStreak)
				assert.Equal(t, 12, r.LongestStreak)
				assert.Empty(t, r.MilestonesReached)
			},
		},
		{
			name: "subject session unlocks subject achievement with subject-scoped reward",
			setup: func(f *fixture) {
				f.putState(func(s *domain.GamificationState) {
					s.TotalXP = 1000
					s.Achievements["first_steps"] = f.unlockedAt()
					s.Achievements["rising_star"] = f.unlockedAt()
				})
				p := domain.NewSubjectProgress(f.learner, f.math.ID)
				p.XPEarned = 480
				p.MasteryPercent = 75
				require.NoError(t, f.store.Stores().SubjectProgress.Save(context.Background(), p))
			},
			session: func(f *fixture) domain.StudySession {
				return domain.StudySession{ID: uuid.New(), LearnerID: f.learner, SubjectID: &f.math.ID, DurationMinutes: 30}
			},
			check: func(t *testing.T, f *fixture, r *SessionResult) {
				assert.Equal(t, 25, r.XPEarned)
				require.Len(t, r.AchievementsUnlocked, 1)
				assert.Equal(t, "math_whiz", r.AchievementsUnlocked[0].Code)
				assert.Equal(t, 100, r.BonusXP)
				assert.Equal(t, 1125, r.TotalXP)

				p := f.store.Progress(f.learner, f.math.ID)
				require.NotNil(t, p)
				assert.Equal(t, 605, p.XPEarned)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.setup(f)

			result, err := f.svc.SessionComplete(context.Background(), tt.session(f))
			require.NoError(t, err)
			tt.check(t, f, result)

			state := f.store.State(f.learner)
			require.NotNil(t, state)
			assert.Equal(t, result.TotalXP, state.TotalXP)
			assert.Equal(t, result.NewStreak, state.Streak.Current)
			assert.Equal(t, f.clock.Today(), state.Streak.LastActiveDate)
		})
	}
}

func TestSessionCompleteRejectsDuplicateSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session := domain.StudySession{ID: uuid.New(), LearnerID: f.learner, FlashcardsReviewed: 2, FlashcardsCorrect: 1}

	first, err := f.svc.SessionComplete(context.Background(), session)
	require.NoError(t, err)

	_, err = f.svc.SessionComplete(context.Background(), session)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrSessionAlreadyRecorded)

	state := f.store.State(f.learner)
	assert.Equal(t, first.TotalXP, state.TotalXP)
	assert.Equal(t, 1, f.store.SessionCount())
}

func TestSessionCompleteValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name    string
		session domain.StudySession
	}{
		{name: "missing learner", session: domain.StudySession{ID: uuid.New()}},
		{name: "negative reviewed", session: domain.StudySession{LearnerID: f.learner, FlashcardsReviewed: -1}},
		{name: "more correct than reviewed", session: domain.StudySession{LearnerID: f.learner, FlashcardsReviewed: 1, FlashcardsCorrect: 2}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SessionComplete(context.Background(), tt.session)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, f.store.Commits)
}

func TestSessionCompleteRollsBackOnSaveFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	injected := errors.New("connection reset")
	f.store.Fail = func(op string) error {
		if op == "Gamification.Save" {
			return injected
		}
		return nil
	}

	_, err := f.svc.SessionComplete(context.Background(), domain.StudySession{
		ID: uuid.New(), LearnerID: f.learner, FlashcardsReviewed: 5, FlashcardsCorrect: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, injected)

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, OpSessionComplete, svcErr.Operation)

	assert.Nil(t, f.store.State(f.learner))
	assert.Equal(t, 0, f.store.SessionCount())
	assert.Empty(t, f.handler.types())
	assert.InDelta(t, 1, f.counter(t, "studyhub_progress_events_total",
		map[string]string{"event": OpSessionComplete, "outcome": "error"}), 0.001)
}

func TestSessionCompleteUnknownLearner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.SessionComplete(context.Background(), domain.StudySession{ID: uuid.New(), LearnerID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrLearnerNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestFlashcardReviewed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		correct   bool
		subject   bool
		wantXP    int
		wantCorr  bool
		wantSubXP int
	}{
		{name: "correct answer in subject", correct: true, subject: true, wantXP: 10, wantCorr: true, wantSubXP: 10},
		{name: "wrong answer without subject", correct: false, wantXP: 5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			var subjectID *uuid.UUID
			if tt.subject {
				subjectID = &f.math.ID
			}

			r, err := f.svc.FlashcardReviewed(context.Background(), f.learner, subjectID, tt.correct)
			require.NoError(t, err)
			assert.Equal(t, tt.wantXP, r.XPEarned)
			assert.Equal(t, tt.wantCorr, r.Correct != nil)
			assert.Equal(t, tt.wantXP, r.TotalXP)

			state := f.store.State(f.learner)
			require.NotNil(t, state)
			assert.Equal(t, 0, state.Streak.Current, "reviews do not touch the streak")
			assert.Empty(t, state.Achievements)
			if tt.subject {
				assert.Equal(t, tt.wantSubXP, f.store.Progress(f.learner, f.math.ID).XPEarned)
			}
		})
	}
}

func TestFlashcardReviewedRespectsDailyCap(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.putState(func(s *domain.GamificationState) {
		s.TotalXP = 900
		s.DailyXP = domain.DailyXP{Date: f.clock.Today(), Earned: map[domain.ActivityType]int{
			domain.ActivityFlashcardReview:  500,
			domain.ActivityFlashcardCorrect: 250,
		}}
	})
	before := f.store.State(f.learner)

	r, err := f.svc.FlashcardReviewed(context.Background(), f.learner, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, r.XPEarned)

	after := f.store.State(f.learner)
	assert.Equal(t, before.Version, after.Version, "a fully capped review writes nothing")
	assert.Equal(t, 900, after.TotalXP)
	assert.InDelta(t, 1, f.counter(t, "studyhub_xp_capped_total",
		map[string]string{"activity": string(domain.ActivityFlashcardReview)}), 0.001)
}

func TestFlashcardReviewedResetsStaleDailyCounters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.putState(func(s *domain.GamificationState) {
		s.DailyXP = domain.DailyXP{Date: f.yesterday(), Earned: map[domain.ActivityType]int{
			domain.ActivityFlashcardReview: 500,
		}}
	})

	r, err := f.svc.FlashcardReviewed(context.Background(), f.learner, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 5, r.XPEarned)

	state := f.store.State(f.learner)
	assert.Equal(t, f.clock.Today(), state.DailyXP.Date)
	assert.Equal(t, 5, state.DailyXP.Earned[domain.ActivityFlashcardReview])
}

func TestConcurrentReviewsForOneLearnerAreSerialized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	const reviews = 20

	var wg sync.WaitGroup
	errs := make(chan error, reviews)
	for i := 0; i < reviews; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.FlashcardReviewed(context.Background(), f.learner, nil, true)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	state := f.store.State(f.learner)
	assert.Equal(t, reviews*10, state.TotalXP)
	assert.Equal(t, int64(reviews), state.Version)
}

func TestNoteUploaded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.putState(func(s *domain.GamificationState) {
		s.Streak = domain.Streak{Current: 7, Longest: 7, LastActiveDate: f.yesterday()}
	})

	award, err := f.svc.NoteUploaded(context.Background(), f.learner, &f.science.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, award.XPEarned, "note XP is flat")
	assert.InDelta(t, 1.0, award.MultiplierApplied, 1e-9)
	assert.Equal(t, 20, f.store.Progress(f.learner, f.science.ID).XPEarned)

	stats, err := f.store.Stores().Stats.GetLearnerStats(context.Background(), f.learner)
	require.NoError(t, err)
	assert.InDelta(t, 1, stats.Values[domain.StatNotesUploaded], 0.001)
}

func TestNoteUploadedUnknownSubject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	unknown := uuid.New()
	_, err := f.svc.NoteUploaded(context.Background(), f.learner, &unknown)
	assert.ErrorIs(t, err, store.ErrSubjectNotFound)
}

func TestAwardXP(t *testing.T) {
	t.Parallel()

	t.Run("negative amount is rejected before any work", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.AwardXP(context.Background(), f.learner, gamification.AwardRequest{
			Activity: domain.ActivityOutcomeCompleted, Amount: -5,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, 0, f.store.Commits)
	})

	t.Run("unknown activity is a counted no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		award, err := f.svc.AwardXP(context.Background(), f.learner, gamification.AwardRequest{
			Activity: "quiz_completed", Amount: 40,
		})
		require.NoError(t, err)
		assert.True(t, award.UnknownActivity)
		assert.Equal(t, 0, award.XPEarned)
		assert.Nil(t, f.store.State(f.learner))
		assert.InDelta(t, 1, f.counter(t, "studyhub_unknown_reference_keys_total",
			map[string]string{"kind": "activity"}), 0.001)
	})

	t.Run("uncapped outcome award with level up", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		award, err := f.svc.AwardXP(context.Background(), f.learner, gamification.AwardRequest{
			Activity: domain.ActivityOutcomeCompleted, Amount: 300, SubjectID: &f.math.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, 300, award.XPEarned)
		assert.True(t, award.LevelUp)
		assert.Equal(t, 3, award.NewLevel)
		assert.Equal(t, 300, f.store.Progress(f.learner, f.math.ID).XPEarned)
		assert.Equal(t, []events.Type{events.TypeLevelUp}, f.handler.types())
		assert.InDelta(t, 1, f.counter(t, "studyhub_level_ups_total", nil), 0.001)
	})
}

func TestRecordActivity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	first, err := f.svc.RecordActivity(context.Background(), f.learner, domain.Date{})
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, 1, first.Streak.Current)

	again, err := f.svc.RecordActivity(context.Background(), f.learner, domain.Date{})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Empty(t, again.MilestonesReached)

	f.clock.Advance(1)
	next, err := f.svc.RecordActivity(context.Background(), f.learner, domain.Date{})
	require.NoError(t, err)
	assert.Equal(t, 2, next.Streak.Current)
	assert.Equal(t, int64(2), f.store.State(f.learner).Version)
}

func TestCheckAndUnlockUnknownRequirement(t *testing.T) {
	t.Parallel()

	rules := gamification.MustDefaultRuleSet()
	rules.Achievements = []domain.AchievementDefinition{{
		Code:         "night_owl",
		Name:         "Night Owl",
		Requirements: map[string]float64{"late_night_sessions": 3},
		XPReward:     5,
		Active:       true,
	}}
	f := newFixtureWithRules(t, rules)

	unlocked, err := f.svc.CheckAndUnlock(context.Background(), f.learner)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "night_owl", unlocked[0].Code)
	assert.Equal(t, f.clock.At, unlocked[0].UnlockedAt)
	assert.Equal(t, 5, f.store.State(f.learner).TotalXP)
	assert.InDelta(t, 1, f.counter(t, "studyhub_unknown_reference_keys_total",
		map[string]string{"kind": "requirement"}), 0.001)

	again, err := f.svc.CheckAndUnlock(context.Background(), f.learner)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRunRejectsNilLearner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.svc.Run(context.Background(), "test", uuid.Nil, func(context.Context, *Unit) error { return nil })
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewService(Deps{})
	assert.Error(t, err)
}

func TestRunRetriesConcurrentModificationOnce(t *testing.T) {
	t.Parallel()

	t.Run("transient conflict is re-applied", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		conflicts := 0
		f.store.Fail = func(op string) error {
			if op == "Gamification.Save" && conflicts == 0 {
				conflicts++
				return store.ErrConcurrentModification
			}
			return nil
		}

		r, err := f.svc.FlashcardReviewed(context.Background(), f.learner, nil, false)
		require.NoError(t, err)
		assert.Equal(t, 5, r.XPEarned)
		assert.Equal(t, 5, f.store.State(f.learner).TotalXP)
		assert.InDelta(t, 1, f.counter(t, "studyhub_concurrent_modification_total", nil), 0.001)
	})

	t.Run("persistent conflict is surfaced", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.store.Fail = func(op string) error {
			if op == "Gamification.Save" {
				return store.ErrConcurrentModification
			}
			return nil
		}

		_, err := f.svc.FlashcardReviewed(context.Background(), f.learner, nil, false)
		assert.ErrorIs(t, err, store.ErrConcurrentModification)
		assert.Nil(t, f.store.State(f.learner))
		assert.Equal(t, 2, f.store.Rollbacks)
	})
}

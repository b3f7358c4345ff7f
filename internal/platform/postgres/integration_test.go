package postgres_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/platform/postgres"
	"github.com/dunskii/studyhub/internal/store"
	"github.com/dunskii/studyhub/internal/testdb"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntegration_GamificationStateRoundTrip(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		stores := postgres.NewStores(tx, quietLogger())
		learner := testdb.InsertLearner(t, tx)

		st, err := stores.Gamification.GetForUpdate(ctx, learner)
		require.NoError(t, err)
		assert.Equal(t, int64(0), st.Version)

		st.TotalXP = 130
		st.Level = 2
		st.Streak = domain.Streak{Current: 2, Longest: 5, LastActiveDate: domain.NewDate(2026, time.March, 10)}
		st.Achievements["first_steps"] = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		require.NoError(t, stores.Gamification.Save(ctx, st))
		assert.Equal(t, int64(1), st.Version)

		loaded, err := stores.Gamification.Get(ctx, learner)
		require.NoError(t, err)
		assert.Equal(t, 130, loaded.TotalXP)
		assert.Equal(t, 5, loaded.Streak.Longest)
		assert.True(t, loaded.HasAchievement("first_steps"))
		assert.Equal(t, int64(1), loaded.Version)

		stale := loaded.Clone()
		require.NoError(t, stores.Gamification.Save(ctx, loaded))
		assert.ErrorIs(t, stores.Gamification.Save(ctx, stale), store.ErrConcurrentModification)

		_, err = stores.Gamification.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrLearnerNotFound)
	})
}

func TestIntegration_FlashcardsAndStats(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		stores := postgres.NewStores(tx, quietLogger())
		learner := testdb.InsertLearner(t, tx)
		subject := testdb.InsertSubject(t, tx, "math")
		card := testdb.InsertFlashcard(t, tx, learner, &subject.ID)
		now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

		got, err := stores.Flashcards.GetFlashcard(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, &subject.ID, got.SubjectID)

		_, err = stores.Flashcards.GetForUpdate(ctx, learner, card.ID)
		require.ErrorIs(t, err, store.ErrScheduleNotFound)

		sch := domain.NewFlashcardSchedule(learner, card.ID, now)
		sch.SubjectID = &subject.ID
		sch.ReviewCount, sch.CorrectCount = 4, 3
		require.NoError(t, stores.Flashcards.Save(ctx, sch))
		require.NoError(t, stores.Flashcards.RecordReview(ctx, &domain.FlashcardReview{
			ID: uuid.New(), FlashcardID: card.ID, LearnerID: learner, Quality: 4, WasCorrect: true, ReviewedAt: now,
		}))

		reviews, correct, err := stores.Flashcards.SubjectReviewTotals(ctx, learner, subject.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, reviews)
		assert.Equal(t, 3, correct)

		session := &domain.StudySession{
			ID: uuid.New(), LearnerID: learner, SubjectID: &subject.ID,
			FlashcardsReviewed: 10, FlashcardsCorrect: 10, DurationMinutes: 15,
		}
		require.NoError(t, stores.Stats.RecordSession(ctx, session, now))
		assert.ErrorIs(t, stores.Stats.RecordSession(ctx, session, now), store.ErrSessionAlreadyRecorded)
	})
}

func TestIntegration_LearnerStatsAggregation(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		stores := postgres.NewStores(tx, quietLogger())
		learner := testdb.InsertLearner(t, tx)
		subject := testdb.InsertSubject(t, tx, "science")
		now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

		for _, s := range []domain.StudySession{
			{FlashcardsReviewed: 10, FlashcardsCorrect: 10, DurationMinutes: 20, SubjectID: &subject.ID},
			{FlashcardsReviewed: 8, FlashcardsCorrect: 5, DurationMinutes: 10},
		} {
			s.ID = uuid.New()
			s.LearnerID = learner
			require.NoError(t, stores.Stats.RecordSession(ctx, &s, now))
		}
		require.NoError(t, stores.Stats.RecordNoteUpload(ctx, learner, &subject.ID, now))

		p := domain.NewSubjectProgress(learner, subject.ID)
		p.XPEarned = 90
		p.MasteryPercent = 35
		p.OutcomesCompleted["SC2-1"] = struct{}{}
		require.NoError(t, stores.SubjectProgress.Save(ctx, p))

		stats, err := stores.Stats.GetLearnerStats(ctx, learner)
		require.NoError(t, err)
		assert.Equal(t, 2.0, stats.Values[domain.StatSessionsCompleted])
		assert.Equal(t, 18.0, stats.Values[domain.StatFlashcardsReviewed])
		assert.Equal(t, 1.0, stats.Values[domain.StatPerfectSessions])
		assert.Equal(t, 1.0, stats.Values[domain.StatNotesUploaded])
		assert.Equal(t, 90.0, stats.Subjects[subject.Code][domain.StatSubjectXP])
		assert.Equal(t, 1.0, stats.Subjects[subject.Code][domain.StatSessionsCompleted])

		loaded, err := stores.SubjectProgress.Get(ctx, learner, subject.ID)
		require.NoError(t, err)
		assert.Contains(t, loaded.OutcomesCompleted, "SC2-1")
	})
}

func TestIntegration_ReferenceData(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		rules := gamification.MustDefaultRuleSet()

		_, err := postgres.SeedAchievements(ctx, tx, rules.Achievements)
		require.NoError(t, err)
		again, err := postgres.SeedAchievements(ctx, tx, rules.Achievements)
		require.NoError(t, err)
		assert.Zero(t, again)

		ref := postgres.NewReferenceStore(tx, rules, quietLogger())
		defs, err := ref.GetAchievementDefinitions(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(defs), len(rules.Achievements))

		subjects, err := ref.GetSubjects(ctx)
		require.NoError(t, err)
		codes := make([]string, 0, len(subjects))
		for _, s := range subjects {
			codes = append(codes, s.Code)
		}
		assert.Contains(t, codes, "MATH")
	})
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/store"
)

// PostgresStatsStore implements the store.LearnerStatsStore interface using a
// PostgreSQL database as the storage backend. Statistics are aggregated from
// the session, note and progress tables on every read.
type PostgresStatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatsStore creates a new PostgreSQL implementation of the
// LearnerStatsStore interface.
func NewPostgresStatsStore(db store.DBTX, logger *slog.Logger) *PostgresStatsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

var _ store.LearnerStatsStore = (*PostgresStatsStore)(nil)

// GetLearnerStats implements store.LearnerStatsStore.GetLearnerStats.
func (s *PostgresStatsStore) GetLearnerStats(ctx context.Context, learnerID uuid.UUID) (domain.LearnerStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	stats := domain.NewLearnerStats()

	steps := []struct {
		name string
		fn   func(context.Context, uuid.UUID, *domain.LearnerStats) error
	}{
		{"state", s.loadState},
		{"sessions", s.loadSessions},
		{"notes", s.loadNotes},
		{"subject_progress", s.loadSubjectProgress},
	}
	for _, step := range steps {
		if err := step.fn(ctx, learnerID, &stats); err != nil {
			if !store.IsNotFoundError(err) {
				log.Error("failed to aggregate learner stats",
					slog.String("step", step.name),
					slog.String("error", err.Error()),
					slog.String("learner_id", learnerID.String()))
			}
			return domain.LearnerStats{}, err
		}
	}
	return stats, nil
}

func (s *PostgresStatsStore) loadState(ctx context.Context, learnerID uuid.UUID, stats *domain.LearnerStats) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT g.state
		FROM learners l
		LEFT JOIN gamification_states g ON g.learner_id = l.id
		WHERE l.id = $1
	`, learnerID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrLearnerNotFound
		}
		return MapError(err)
	}
	if raw == nil {
		return nil
	}
	state, err := domain.DecodeGamificationState(learnerID, raw)
	if err != nil {
		return store.NewStoreError("learner_stats", "get", "decode gamification state", err)
	}
	stats.Values[domain.StatTotalXP] = float64(state.TotalXP)
	stats.Values[domain.StatLevel] = float64(state.Level)
	stats.Values[domain.StatCurrentStreak] = float64(state.Streak.Current)
	stats.Values[domain.StatLongestStreak] = float64(state.Streak.Longest)
	return nil
}

// subjectScope returns the per-subject map for code, creating it on first use.
func subjectScope(stats *domain.LearnerStats, code sql.NullString) map[string]float64 {
	if !code.Valid {
		return nil
	}
	m, ok := stats.Subjects[code.String]
	if !ok {
		m = make(map[string]float64)
		stats.Subjects[code.String] = m
	}
	return m
}

func (s *PostgresStatsStore) loadSessions(ctx context.Context, learnerID uuid.UUID, stats *domain.LearnerStats) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub.code,
			COUNT(*),
			COALESCE(SUM(ss.flashcards_reviewed), 0),
			COALESCE(SUM(ss.flashcards_correct), 0),
			COALESCE(SUM(ss.duration_minutes), 0),
			COUNT(*) FILTER (WHERE ss.flashcards_reviewed > 0 AND ss.flashcards_correct = ss.flashcards_reviewed)
		FROM study_sessions ss
		LEFT JOIN subjects sub ON sub.id = ss.subject_id
		WHERE ss.learner_id = $1
		GROUP BY sub.code
	`, learnerID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var code sql.NullString
		var sessions, reviewed, correct, mins, perfect float64
		if err := rows.Scan(&code, &sessions, &reviewed, &correct, &mins, &perfect); err != nil {
			return MapError(err)
		}
		targets := []map[string]float64{stats.Values}
		if m := subjectScope(stats, code); m != nil {
			targets = append(targets, m)
		}
		for _, m := range targets {
			m[domain.StatSessionsCompleted] += sessions
			m[domain.StatFlashcardsReviewed] += reviewed
			m[domain.StatFlashcardsCorrect] += correct
			m[domain.StatStudyMinutes] += mins
			m[domain.StatPerfectSessions] += perfect
		}
	}
	return MapError(rows.Err())
}

func (s *PostgresStatsStore) loadNotes(ctx context.Context, learnerID uuid.UUID, stats *domain.LearnerStats) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub.code, COUNT(*)
		FROM note_uploads n
		LEFT JOIN subjects sub ON sub.id = n.subject_id
		WHERE n.learner_id = $1
		GROUP BY sub.code
	`, learnerID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			code  sql.NullString
			count float64
		)
		if err := rows.Scan(&code, &count); err != nil {
			return MapError(err)
		}
		stats.Values[domain.StatNotesUploaded] += count
		if m := subjectScope(stats, code); m != nil {
			m[domain.StatNotesUploaded] += count
		}
	}
	return MapError(rows.Err())
}

func (s *PostgresStatsStore) loadSubjectProgress(ctx context.Context, learnerID uuid.UUID, stats *domain.LearnerStats) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub.code, p.xp_earned, p.mastery_percent
		FROM subject_progress p
		JOIN subjects sub ON sub.id = p.subject_id
		WHERE p.learner_id = $1
	`, learnerID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			code        sql.NullString
			xp, mastery float64
		)
		if err := rows.Scan(&code, &xp, &mastery); err != nil {
			return MapError(err)
		}
		m := subjectScope(stats, code)
		m[domain.StatSubjectXP] = xp
		m[domain.StatMasteryPercent] = mastery
	}
	return MapError(rows.Err())
}

// RecordSession implements store.LearnerStatsStore.RecordSession.
func (s *PostgresStatsStore) RecordSession(ctx context.Context, session *domain.StudySession, completedAt time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO study_sessions
			(id, learner_id, subject_id, flashcards_reviewed, flashcards_correct, duration_minutes, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		session.ID,
		session.LearnerID,
		uuidPtrArg(session.SubjectID),
		session.FlashcardsReviewed,
		session.FlashcardsCorrect,
		session.DurationMinutes,
		completedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			log.Warn("study session already recorded", slog.String("session_id", session.ID.String()))
			return fmt.Errorf("%w: %s", store.ErrSessionAlreadyRecorded, session.ID)
		case IsForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", store.ErrLearnerNotFound, session.LearnerID)
		}
		log.Error("failed to record study session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}
	return nil
}

// RecordNoteUpload implements store.LearnerStatsStore.RecordNoteUpload.
func (s *PostgresStatsStore) RecordNoteUpload(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID *uuid.UUID,
	uploadedAt time.Time,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO note_uploads (id, learner_id, subject_id, uploaded_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), learnerID, uuidPtrArg(subjectID), uploadedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrLearnerNotFound, learnerID)
		}
		return MapError(err)
	}
	return nil
}

// WithTx implements store.LearnerStatsStore.WithTx.
func (s *PostgresStatsStore) WithTx(tx *sql.Tx) store.LearnerStatsStore {
	return &PostgresStatsStore{db: tx, logger: s.logger}
}

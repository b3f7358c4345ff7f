package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/store"
)

// PostgresSubjectProgressStore implements the store.SubjectProgressStore
// interface using a PostgreSQL database as the storage backend.
type PostgresSubjectProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubjectProgressStore creates a new PostgreSQL implementation of
// the SubjectProgressStore interface.
func NewPostgresSubjectProgressStore(db store.DBTX, logger *slog.Logger) *PostgresSubjectProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSubjectProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "subject_progress_store")),
	}
}

var _ store.SubjectProgressStore = (*PostgresSubjectProgressStore)(nil)

const selectSubjectProgress = `
		SELECT learner_id, subject_id, xp_earned, mastery_percent, outcomes_completed, outcomes_in_progress
		FROM subject_progress
	`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubjectProgress(row rowScanner) (*domain.SubjectProgress, error) {
	var (
		p                     domain.SubjectProgress
		completed, inProgress []byte
	)
	if err := row.Scan(&p.LearnerID, &p.SubjectID, &p.XPEarned, &p.MasteryPercent, &completed, &inProgress); err != nil {
		return nil, err
	}
	var err error
	if p.OutcomesCompleted, err = decodeOutcomeSet(completed); err != nil {
		return nil, err
	}
	if p.OutcomesInProgress, err = decodeOutcomeSet(inProgress); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get implements store.SubjectProgressStore.Get.
func (s *PostgresSubjectProgressStore) Get(ctx context.Context, learnerID, subjectID uuid.UUID) (*domain.SubjectProgress, error) {
	return s.get(ctx, learnerID, subjectID, "")
}

// GetForUpdate implements store.SubjectProgressStore.GetForUpdate.
func (s *PostgresSubjectProgressStore) GetForUpdate(ctx context.Context, learnerID, subjectID uuid.UUID) (*domain.SubjectProgress, error) {
	return s.get(ctx, learnerID, subjectID, " FOR UPDATE")
}

func (s *PostgresSubjectProgressStore) get(ctx context.Context, learnerID, subjectID uuid.UUID, suffix string) (*domain.SubjectProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := selectSubjectProgress + " WHERE learner_id = $1 AND subject_id = $2" + suffix
	p, err := scanSubjectProgress(s.db.QueryRowContext(ctx, query, learnerID, subjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubjectProgressNotFound
		}
		log.Error("failed to get subject progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("subject_id", subjectID.String()))
		return nil, MapError(err)
	}
	return p, nil
}

// ListByLearner implements store.SubjectProgressStore.ListByLearner.
func (s *PostgresSubjectProgressStore) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.SubjectProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, selectSubjectProgress+" WHERE learner_id = $1 ORDER BY subject_id", learnerID)
	if err != nil {
		log.Error("failed to list subject progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.SubjectProgress
	for rows.Next() {
		p, err := scanSubjectProgress(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// Save implements store.SubjectProgressStore.Save.
func (s *PostgresSubjectProgressStore) Save(ctx context.Context, progress *domain.SubjectProgress) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	completed, err := encodeOutcomeSet(progress.OutcomesCompleted)
	if err != nil {
		return err
	}
	inProgress, err := encodeOutcomeSet(progress.OutcomesInProgress)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subject_progress
			(learner_id, subject_id, xp_earned, mastery_percent, outcomes_completed, outcomes_in_progress, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (learner_id, subject_id) DO UPDATE SET
			xp_earned = EXCLUDED.xp_earned,
			mastery_percent = EXCLUDED.mastery_percent,
			outcomes_completed = EXCLUDED.outcomes_completed,
			outcomes_in_progress = EXCLUDED.outcomes_in_progress,
			updated_at = NOW()
	`, progress.LearnerID, progress.SubjectID, progress.XPEarned, progress.MasteryPercent, completed, inProgress)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrSubjectNotFound, progress.SubjectID)
		}
		log.Error("failed to save subject progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", progress.LearnerID.String()),
			slog.String("subject_id", progress.SubjectID.String()))
		return MapError(err)
	}
	return nil
}

// WithTx implements store.SubjectProgressStore.WithTx.
func (s *PostgresSubjectProgressStore) WithTx(tx *sql.Tx) store.SubjectProgressStore {
	return &PostgresSubjectProgressStore{db: tx, logger: s.logger}
}

// Outcome sets are stored as sorted JSON arrays.
func encodeOutcomeSet(set map[string]struct{}) ([]byte, error) {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	data, err := json.Marshal(codes)
	if err != nil {
		return nil, fmt.Errorf("encode outcome set: %w", err)
	}
	return data, nil
}

func decodeOutcomeSet(data []byte) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if len(data) == 0 {
		return set, nil
	}
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("%w: outcome set: %v", domain.ErrInvalidFormat, err)
	}
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/store"
)

// PostgresGamificationStore implements the store.GamificationStore interface
// using a PostgreSQL database as the storage backend. The state record is
// stored as JSONB next to a version column used for optimistic locking.
type PostgresGamificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGamificationStore creates a new PostgreSQL implementation of the
// GamificationStore interface. If logger is nil, a default logger will be used.
func NewPostgresGamificationStore(db store.DBTX, logger *slog.Logger) *PostgresGamificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGamificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "gamification_store")),
	}
}

var _ store.GamificationStore = (*PostgresGamificationStore)(nil)

// The learner row is the lock target so a learner without a state row can
// still be serialized.
const selectGamificationState = `
		SELECT l.id, g.state, COALESCE(g.version, 0)
		FROM learners l
		LEFT JOIN gamification_states g ON g.learner_id = l.id
		WHERE l.id = $1
	`

// Get implements store.GamificationStore.Get.
func (s *PostgresGamificationStore) Get(ctx context.Context, learnerID uuid.UUID) (*domain.GamificationState, error) {
	return s.get(ctx, learnerID, selectGamificationState)
}

// GetForUpdate implements store.GamificationStore.GetForUpdate.
func (s *PostgresGamificationStore) GetForUpdate(ctx context.Context, learnerID uuid.UUID) (*domain.GamificationState, error) {
	return s.get(ctx, learnerID, selectGamificationState+" FOR UPDATE OF l")
}

func (s *PostgresGamificationStore) get(ctx context.Context, learnerID uuid.UUID, query string) (*domain.GamificationState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		id      uuid.UUID
		raw     []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, query, learnerID).Scan(&id, &raw, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learner not found", slog.String("learner_id", learnerID.String()))
			return nil, store.ErrLearnerNotFound
		}
		log.Error("failed to load gamification state",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}

	state, err := domain.DecodeGamificationState(learnerID, raw)
	if err != nil {
		log.Error("stored gamification state is unreadable",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, store.NewStoreError("gamification_state", "get", "decode failed", err)
	}
	state.Version = version
	return state, nil
}

// Save implements store.GamificationStore.Save. A state with Version 0 is
// inserted; otherwise the row is updated only if its version still matches.
func (s *PostgresGamificationStore) Save(ctx context.Context, state *domain.GamificationState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("gamification state validation failed during save",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()))
		return err
	}

	data, err := domain.EncodeGamificationState(state)
	if err != nil {
		return store.NewStoreError("gamification_state", "save", "encode failed", err)
	}

	var result sql.Result
	if state.Version == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO gamification_states (learner_id, state, total_xp, level, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, NOW())
			ON CONFLICT (learner_id) DO NOTHING
		`, state.LearnerID, data, state.TotalXP, state.Level)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE gamification_states
			SET state = $2, total_xp = $3, level = $4, version = version + 1, updated_at = NOW()
			WHERE learner_id = $1 AND version = $5
		`, state.LearnerID, data, state.TotalXP, state.Level, state.Version)
	}
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during gamification state save",
				slog.String("learner_id", state.LearnerID.String()))
			return fmt.Errorf("%w: %s", store.ErrLearnerNotFound, state.LearnerID)
		}
		log.Error("failed to save gamification state",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrConcurrentModification); err != nil {
		log.Warn("gamification state changed since it was loaded",
			slog.String("learner_id", state.LearnerID.String()),
			slog.Int64("version", state.Version))
		return err
	}

	state.Version++
	log.Debug("gamification state saved",
		slog.String("learner_id", state.LearnerID.String()),
		slog.Int64("version", state.Version),
		slog.Int("total_xp", state.TotalXP))
	return nil
}

// WithTx implements store.GamificationStore.WithTx.
func (s *PostgresGamificationStore) WithTx(tx *sql.Tx) store.GamificationStore {
	return &PostgresGamificationStore{db: tx, logger: s.logger}
}

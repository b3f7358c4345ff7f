package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
)

// GamificationStore persists each learner's XP, level, streak and
// achievement record.
type GamificationStore interface {
	// Get loads the learner's state without locking. A learner who has never
	// earned anything gets a fresh state with Version 0.
	// Returns ErrLearnerNotFound if the learner does not exist.
	Get(ctx context.Context, learnerID uuid.UUID) (*domain.GamificationState, error)

	// GetForUpdate is Get with a row-level lock on the learner, held until the
	// surrounding transaction ends. Use it for read-modify-write.
	GetForUpdate(ctx context.Context, learnerID uuid.UUID) (*domain.GamificationState, error)

	// Save writes state if its Version still matches the stored one and bumps
	// Version on success. Returns ErrConcurrentModification otherwise.
	Save(ctx context.Context, state *domain.GamificationState) error

	// WithTx returns a new GamificationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) GamificationStore
}

// SubjectProgressStore persists per-subject progress.
type SubjectProgressStore interface {
	// Get returns ErrSubjectProgressNotFound when the learner has no progress
	// in the subject.
	Get(ctx context.Context, learnerID, subjectID uuid.UUID) (*domain.SubjectProgress, error)

	// GetForUpdate is Get with a row-level lock.
	GetForUpdate(ctx context.Context, learnerID, subjectID uuid.UUID) (*domain.SubjectProgress, error)

	// ListByLearner returns all subject progress of a learner.
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.SubjectProgress, error)

	// Save inserts or replaces the progress row.
	Save(ctx context.Context, progress *domain.SubjectProgress) error

	// WithTx returns a new SubjectProgressStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SubjectProgressStore
}

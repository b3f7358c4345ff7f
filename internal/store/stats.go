package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
)

// LearnerStatsStore records countable activity and aggregates it into the
// statistics achievements are evaluated against.
type LearnerStatsStore interface {
	// GetLearnerStats returns a snapshot of the learner's aggregate
	// statistics, including per-subject breakdowns keyed by subject code.
	GetLearnerStats(ctx context.Context, learnerID uuid.UUID) (domain.LearnerStats, error)

	// RecordSession stores a completed session.
	// Returns ErrSessionAlreadyRecorded if the session ID was seen before.
	RecordSession(ctx context.Context, session *domain.StudySession, completedAt time.Time) error

	// RecordNoteUpload counts an uploaded note.
	RecordNoteUpload(ctx context.Context, learnerID uuid.UUID, subjectID *uuid.UUID, uploadedAt time.Time) error

	// WithTx returns a new LearnerStatsStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LearnerStatsStore
}

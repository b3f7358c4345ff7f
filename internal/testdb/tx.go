package testdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/domain"
)

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// InsertLearner creates a learner and returns its ID.
func InsertLearner(t *testing.T, tx *sql.Tx) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := tx.Exec(`INSERT INTO learners (id, display_name) VALUES ($1, $2)`, id, "test learner")
	require.NoError(t, err, "failed to insert learner")
	return id
}

// InsertSubject creates a subject with a unique code derived from prefix.
func InsertSubject(t *testing.T, tx *sql.Tx, prefix string) domain.Subject {
	t.Helper()
	subj := domain.Subject{
		ID:   uuid.New(),
		Code: strings.ToUpper(prefix + "_" + uuid.NewString()[:8]),
		Name: prefix,
	}
	_, err := tx.Exec(`INSERT INTO subjects (id, code, name) VALUES ($1, $2, $3)`, subj.ID, subj.Code, subj.Name)
	require.NoError(t, err, "failed to insert subject")
	return subj
}

// InsertFlashcard creates a flashcard owned by learnerID.
func InsertFlashcard(t *testing.T, tx *sql.Tx, learnerID uuid.UUID, subjectID *uuid.UUID) domain.Flashcard {
	t.Helper()
	card := domain.Flashcard{ID: uuid.New(), LearnerID: learnerID, SubjectID: subjectID}
	var subject any
	if subjectID != nil {
		subject = *subjectID
	}
	_, err := tx.Exec(`INSERT INTO flashcards (id, learner_id, subject_id) VALUES ($1, $2, $3)`,
		card.ID, card.LearnerID, subject)
	require.NoError(t, err, "failed to insert flashcard")
	return card
}

package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dunskii/studyhub/internal/store"
)

// NewStores returns every store bound to db.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Gamification:    NewPostgresGamificationStore(db, logger),
		SubjectProgress: NewPostgresSubjectProgressStore(db, logger),
		Flashcards:      NewPostgresFlashcardStore(db, logger),
		Stats:           NewPostgresStatsStore(db, logger),
	}
}

// TxManager implements store.TxManager with database transactions.
type TxManager struct {
	db     *sql.DB
	stores store.Stores
}

var _ store.TxManager = (*TxManager)(nil)

// NewTxManager creates a TxManager over db.
func NewTxManager(db *sql.DB, logger *slog.Logger) *TxManager {
	if db == nil {
		panic("db cannot be nil")
	}
	return &TxManager{db: db, stores: NewStores(db, logger)}
}

// WithinTx runs fn with stores bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	return store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			Gamification:    m.stores.Gamification.WithTx(tx),
			SubjectProgress: m.stores.SubjectProgress.WithTx(tx),
			Flashcards:      m.stores.Flashcards.WithTx(tx),
			Stats:           m.stores.Stats.WithTx(tx),
		})
	})
}

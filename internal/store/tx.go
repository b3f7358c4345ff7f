package store

import "context"

// Stores is the set of stores bound to one transaction.
type Stores struct {
	Gamification    GamificationStore
	SubjectProgress SubjectProgressStore
	Flashcards      FlashcardScheduleStore
	Stats           LearnerStatsStore
}

// TxManager runs a unit of work against transaction-bound stores. If fn
// returns an error nothing it wrote is kept.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// Package mocks provides test doubles shared across packages.
//
// MemoryStore is an in-memory implementation of every store interface plus
// store.TxManager. Transactions work on a copy of the data that is swapped
// in on commit, so rollback behaviour can be asserted. Fail injects errors
// into named store operations:
//
//	mem := mocks.NewMemoryStore()
//	mem.AddLearner(learnerID)
//	mem.Fail = func(op string) error {
//		if op == "Flashcards.RecordReview" {
//			return errors.New("disk full")
//		}
//		return nil
//	}
package mocks

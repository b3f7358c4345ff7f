// Package progress orchestrates the learning progress engine.
//
// Every study event (a completed session, a reviewed flashcard, an uploaded
// note) is applied to the learner's gamification state as one unit of work:
// the state row is locked, XP is credited through the ledger, the streak is
// advanced, achievements are evaluated against a single statistics snapshot,
// and everything is saved in the same transaction. Progress events and
// metrics are published only after the transaction commits.
//
// Events for the same learner are serialized by an in-process lock and by
// the row lock taken in the store; different learners proceed in parallel.
package progress

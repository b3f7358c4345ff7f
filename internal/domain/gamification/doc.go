// Package gamification holds the pure rules of the progress engine: the
// activity rule table, level calculation, streak tracking, the XP ledger
// arithmetic and achievement evaluation.
//
// Nothing in this package performs I/O. Callers load a GamificationState,
// apply one or more operations to a clone of it and persist the result in a
// single transaction.
package gamification

// Package store defines the persistence contracts of the progress engine.
// These interfaces abstract the underlying data storage mechanism from the
// services, so the engine's rules stay independent of the database.
//
// Every store offers WithTx to bind it to a caller-managed transaction, and
// TxManager groups the stores an orchestrated event mutates so that the whole
// event commits or rolls back together.
package store

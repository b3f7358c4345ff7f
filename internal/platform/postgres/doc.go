// Package postgres implements the store interfaces on PostgreSQL through the
// pgx stdlib driver. Stores accept a store.DBTX so the same code runs against
// the pool or inside a transaction opened by TxManager.
//
// The schema lives in migrations/ and is embedded into the binary; Migrate
// applies it with goose.
package postgres

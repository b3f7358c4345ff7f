// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database.
//
// Tests skip themselves unless DATABASE_URL is set. Each test runs in its own
// transaction that is rolled back when the test ends, so tests can run in
// parallel against the same schema:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        learner := testdb.InsertLearner(t, tx)
//	        ...
//	    })
//	}
package testdb

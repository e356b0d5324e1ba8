// Package testdb provides helpers for integration tests that run against a
// real PostgreSQL database.
//
// Tests are skipped unless DATABASE_URL (or BOARDNOTIFY_TEST_DB_URL) is set.
// The schema is migrated once per process with the embedded goose migrations,
// and each test runs inside a transaction that is rolled back afterwards:
//
//	func TestQueueRoundTrip(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        queue := postgres.NewPostgresEmailQueueStore(db, nil).WithTx(tx)
//	        ...
//	    })
//	}
package testdb

// Package testdb provides utilities for tests that need a real Postgres
// database.
//
// Tests skip when no database URL is configured, so the default test run
// never needs external services:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        store := postgres.NewPostgresSessionStore(tx, nil)
//	        // ... changes are rolled back when fn returns
//	    })
//	}
package testdb

// Package testdb provides utilities for database integration tests.
//
// Tests obtain a migrated connection with GetTestDBWithT, which skips the test
// when no database URL is configured. Most tests then run inside WithTx so
// their writes are rolled back; tests that need committed rows visible to
// several connections (concurrent claiming, for example) call ResetTables
// instead.
//
// The package uses the following environment variables:
//
// - DATABASE_URL: Primary connection string
// - MC_TEST_DB_URL: Alternative connection string
package testdb

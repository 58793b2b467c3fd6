// Package history persists one row per processed image in a SQLite database
// under the state directory.
//
// The ledger backs the `history` command and lets operators see which scans
// failed and at which stage. Writes retry briefly on SQLITE_BUSY so that a
// concurrent reader never fails a run.
package history

// Package store persists sessions and the published catalogue in SQLite.
//
// Store owns the database handle, creates the schema on first open, and
// retries writes that hit SQLITE_BUSY. It implements commit.Repository: WithTx
// runs the whole publish in one transaction, find-or-create keeps people,
// publishers, and instruments unique by case-insensitive name, and the UNIQUE
// origin_session_id column turns a racing second commit into
// commit.ErrDuplicateCommit.
//
// Sessions round-trip through Restore so persisted statuses are trusted as
// written. Every failure attached to a session is also appended to
// session_failures, which keeps the history after a retry clears the latest
// one. Schema changes bump schemaVersion; operators delete the database to
// adopt a new schema.
package store

// Package workflow moves ingestion sessions through their lifecycle.
//
// The Manager owns every state change a session goes through after upload:
// queueing, claiming work for the recognition collaborators, recording their
// extraction results, routing, failure and retry, human review, and the
// final commit into the catalogue. The same Manager backs the CLI, the HTTP
// API, and the background loop started by the daemon.
//
// The background loop reclaims sessions whose worker stopped sending
// heartbeats, re-queues retriable failures, evaluates processed sessions
// concurrently, and auto-commits the ones routing marked AUTO_COMMIT.
package workflow

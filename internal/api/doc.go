// Package api defines wire-format types and converters for the HTTP API and
// the CLI's JSON output. It translates sessions, routing decisions, and
// workflow summaries into transport-friendly DTOs so consumers never depend
// on internal types.
//
// # Key Types
//
// Session: transport representation of an ingestion session with its four
// status dimensions, extracted metadata, review state, and latest failure.
//
// WorkflowStatus: background loop state, per-workflow session counts, and
// collaborator health.
//
// DaemonStatus: aggregated runtime information including lock and database
// paths.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Status enums are exposed verbatim
// (UPLOADED, PENDING_REVIEW, ...). Timestamps use RFC3339 with milliseconds.
// Request bodies for mutating endpoints live alongside the responses so the
// server and its tests share one definition.
package api

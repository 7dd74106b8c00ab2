// Package failure is the stage-scoped error taxonomy for the ingestion
// pipeline.
//
// Every failure surfaced to a session carries a canonical Code. Two fixed sets
// partition a subset of codes into retriable (transient I/O, model throttling,
// commit transaction failures) and terminal (bad input, auth failures,
// duplicate commits). Codes in neither set are treated as non-retriable.
//
// Classify turns an arbitrary error into a code using a priority-ordered
// message heuristic; errors built with Wrap keep their explicit code.
// SessionFailure values are immutable and can only be created through
// NewSessionFailure (or FromError), which stamps retriability and time.
package failure

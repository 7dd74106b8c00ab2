// Package status defines the four independent status dimensions a session
// moves through and the transition tables that govern them.
//
// The workflow dimension tracks the session as a whole. The OCR, second-pass,
// and commit dimensions are sub-statuses that share one shape. Every table is
// a pure function from a state to the set of states it may move to; nothing in
// this package persists state. Callers validate with AssertTransition (or the
// Session setters built on it) and then store the new value themselves.
//
// The decision helpers (CanQueueOCR, CanAutoCommit, ...) are derived from the
// tables and never hold state of their own.
package status

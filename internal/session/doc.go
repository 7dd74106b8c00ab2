// Package session defines the Session record that flows through ingestion.
//
// A Session carries four independent status dimensions. They are unexported
// and only change through the Set*/Advance* methods, which validate each hop
// against the status tables so no persisted value can skip a transition.
package session

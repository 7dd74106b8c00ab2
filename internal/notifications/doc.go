// Package notifications delivers session events to ntfy.
//
// The workflow manager publishes when a session needs human review, when it
// fails, and when it reaches the catalogue. A blank topic yields a no-op
// service so callers never branch on configuration.
package notifications

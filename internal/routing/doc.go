// Package routing decides the next pipeline stage for a session from a
// snapshot of its quality signals.
//
// Determine evaluates an ordered cascade; the first matching rule wins and
// carries every reason collected for it. Results are transient and the caller
// translates a route into status transitions.
package routing

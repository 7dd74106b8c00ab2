// Package daemon coordinates the long-running scoreflow worker process.
//
// It wires configuration, the session store, the workflow manager, and the
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. The background loop reclaims sessions whose heartbeat
// expired, retries retriable failures, routes freshly extracted sessions, and
// commits sessions that qualify for autonomous approval.
//
// Keep orchestration logic here: individual workflow steps should live in
// the workflow package while the daemon focuses on startup, shutdown, and the
// HTTP surface.
package daemon

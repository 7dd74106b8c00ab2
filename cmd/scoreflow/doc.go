// Package main hosts the scoreflow CLI.
//
// Commands open the session database directly through the workflow manager,
// so they work with or without a running scoreflowd. Mutations take the same
// per-session paths the daemon uses; SQLite serializes concurrent writers.
// Pass --json for machine-readable output using the HTTP API's payloads.
package main

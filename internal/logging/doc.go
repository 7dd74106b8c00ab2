// Package logging builds the slog loggers shared by the scoreflow daemon and
// CLI.
//
// Two handlers are provided: a console handler that renders one readable line
// per record with the session and stage pulled into the header, and a JSON
// handler for the on-disk log. NewFromConfig tees both when a log directory is
// configured. Field* constants keep attribute keys consistent across packages,
// and WithContext lifts session and request identifiers stored on a context
// into logger attributes.
package logging

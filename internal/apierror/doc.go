// Package apierror converts internal errors into the stable envelope returned
// by the HTTP API and printed by the CLI in JSON mode.
//
// Classified errors keep their canonical code and message. Unclassified
// errors collapse to INTERNAL_ERROR; outside production the raw message and
// a stack trace are attached to help debugging, in production neither is.
package apierror

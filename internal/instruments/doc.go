// Package instruments holds the canonical instrument registry used to resolve
// noisy part labels into an instrument name, section, and transposition.
//
// The registry is a static table indexed by lowercase alias, including common
// OCR misreads. Lookups try an exact alias first and then fall back to the
// longest alias contained in the label, so "1st Bass Clarinet" resolves to Bass
// Clarinet rather than the shorter "clarinet" alias. "Other" is never a
// registered section; it is only returned when nothing matches.
package instruments

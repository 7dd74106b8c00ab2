// Package metadata models the output of the recognition collaborator and
// normalizes it into canonical catalogue fields.
//
// The package-level Normalize* functions are total and idempotent: they never
// fail and return their own output unchanged. Normalizer combines them with
// the instrument registry to produce a Normalized document in which every
// field keeps its raw value next to the normalized one.
package metadata

// Package offsets resolves labware offsets: which ones are missing, which
// value is the most recent, what must be written to the datastore, and what
// is applied to a run.
//
// All functions are pure. Every branch that deals with an absent offset is
// explicit; a missing value is never replaced by a zero vector.
package offsets

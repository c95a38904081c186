// Package workingoffset accumulates the positions a user registers while
// jogging a pipette over labware, and derives offset vectors from them.
//
// State changes only through Dispatch. Records are keyed by labware id and
// the canonical key of the location; once created a record is never removed,
// so the full history of a run can be replayed.
package workingoffset

// Package location models where a piece of labware sits on the deck and how
// that placement is described to the offset datastore.
//
// Two representations exist. A LabwareLocation is the immediate parent of a
// labware as written in the protocol analysis (a slot, a module, an adapter,
// an addressable area, or off deck). A Sequence is the fully resolved stack
// from the labware outward, which is the key offsets are stored under.
//
// Locations are compared by their canonical Key, never by struct equality,
// so that two locations built from different sources match whenever they
// name the same place.
package location

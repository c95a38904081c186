// Package steps derives the ordered list of calibration steps for a labware
// position check from a protocol analysis document.
//
// The list always opens with BeforeBeginning and closes with ResultsSummary.
// Between them come one CheckItem per distinct (labware, location) the
// protocol touches, then a PickUpTip/ReturnTip pair for every distinct
// (pipette, tiprack, location) the protocol picks tips from. The list is
// computed once per run and never changes afterwards.
package steps

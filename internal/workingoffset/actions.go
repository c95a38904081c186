package workingoffset

import (
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// Action is a state change accepted by State.Dispatch. The set of actions is
// closed: InitialPosition, FinalPosition and TipPickUpOffset.
type Action interface {
	actionName() string
}

// InitialPosition registers where the pipette was before the user jogged.
type InitialPosition struct {
	LabwareID string
	Location  location.LabwareLocation
	Position  vector.Vector3
}

// FinalPosition registers where the user confirmed the pipette.
type FinalPosition struct {
	LabwareID string
	Location  location.LabwareLocation
	Position  vector.Vector3
}

// TipPickUpOffset records the offset used for the tip currently held. A nil
// Offset means no valid tip pick-up.
type TipPickUpOffset struct {
	Offset *vector.Vector3
}

func (InitialPosition) actionName() string { return "initialPosition" }
func (FinalPosition) actionName() string   { return "finalPosition" }
func (TipPickUpOffset) actionName() string { return "tipPickUpOffset" }

// Name returns the wire name of an action.
func Name(a Action) string {
	return a.actionName()
}

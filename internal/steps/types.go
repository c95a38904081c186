package steps

import (
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
)

// Kind discriminates the step variants.
type Kind int

const (
	BeforeBeginning Kind = iota
	CheckItem
	PickUpTip
	ReturnTip
	ResultsSummary
)

func (k Kind) String() string {
	switch k {
	case BeforeBeginning:
		return "BEFORE_BEGINNING"
	case CheckItem:
		return "CHECK_ITEM"
	case PickUpTip:
		return "PICK_UP_TIP"
	case ReturnTip:
		return "RETURN_TIP"
	case ResultsSummary:
		return "RESULTS_SUMMARY"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText lets Kind appear by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Step is one entry of the calibration sequence. Labware fields are empty
// for BeforeBeginning and ResultsSummary.
type Step struct {
	Kind          Kind                     `json:"kind"`
	LabwareID     string                   `json:"labwareId,omitempty"`
	PipetteID     string                   `json:"pipetteId,omitempty"`
	DefinitionURI string                   `json:"definitionUri,omitempty"`
	Location      location.LabwareLocation `json:"location,omitempty"`
	Sequence      location.Sequence        `json:"locationSequence,omitempty"`
	SlotName      string                   `json:"slotName,omitempty"`
	ModuleID      string                   `json:"moduleId,omitempty"`
	AdapterID     string                   `json:"adapterId,omitempty"`
	IsTiprack     bool                     `json:"isTiprack,omitempty"`
}

// IsMovement reports whether the step drives the pipette to a labware.
func (s Step) IsMovement() bool {
	return s.Kind == CheckItem || s.Kind == PickUpTip || s.Kind == ReturnTip
}

// Key identifies the (labware, location) pair a movement step calibrates.
func (s Step) Key() string {
	return s.LabwareID + "@" + s.Location.Key()
}

func (s Step) String() string {
	if !s.IsMovement() {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s in slot %s, pipette %s)", s.Kind, s.LabwareID, s.SlotName, s.PipetteID)
}

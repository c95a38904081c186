package protocol

import (
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// Command types read by the position check.
const (
	CommandLoadLabware = "loadLabware"
	CommandMoveLabware = "moveLabware"
	CommandPickUpTip   = "pickUpTip"
	CommandDropTip     = "dropTip"
	CommandMoveToWell  = "moveToWell"
	CommandAspirate    = "aspirate"
	CommandDispense    = "dispense"
	CommandBlowOut     = "blowout"
	CommandTouchTip    = "touchTip"
)

// Document is the parsed analysis of one protocol.
type Document struct {
	Pipettes         []Pipette         `json:"pipettes"`
	Labware          []Labware         `json:"labware"`
	Modules          []Module          `json:"modules"`
	Commands         []Command         `json:"commands"`
	HardcodedOffsets []HardcodedOffset `json:"hardcodedOffsets,omitempty"`
}

// Pipette is a loaded pipette.
type Pipette struct {
	ID          string `json:"id"`
	PipetteName string `json:"pipetteName"`
	Mount       string `json:"mount"`
}

// Labware is a loaded labware and its initial location.
type Labware struct {
	ID            string                   `json:"id"`
	DefinitionURI string                   `json:"definitionUri"`
	DisplayName   string                   `json:"displayName,omitempty"`
	Location      location.LabwareLocation `json:"location"`
	IsTiprack     bool                     `json:"isTiprack,omitempty"`
	IsAdapter     bool                     `json:"isAdapter,omitempty"`
}

// Module is a loaded hardware module.
type Module struct {
	ID       string                   `json:"id"`
	Model    string                   `json:"model"`
	Location location.LabwareLocation `json:"location"`
}

// Command is one entry of the analysed command list.
type Command struct {
	ID          string `json:"id,omitempty"`
	CommandType string `json:"commandType"`
	Params      Params `json:"params"`
}

// Params carries the command parameters the position check reads. Other
// parameters in the document are ignored.
type Params struct {
	PipetteID   string                    `json:"pipetteId,omitempty"`
	LabwareID   string                    `json:"labwareId,omitempty"`
	WellName    string                    `json:"wellName,omitempty"`
	Location    *location.LabwareLocation `json:"location,omitempty"`
	NewLocation *location.LabwareLocation `json:"newLocation,omitempty"`
}

// HardcodedOffset is an offset baked into the protocol itself.
type HardcodedOffset struct {
	ID            string            `json:"id"`
	DefinitionURI string            `json:"definitionUri"`
	Sequence      location.Sequence `json:"locationSequence"`
	Vector        vector.Vector3    `json:"vector"`
}

// Module models that need preparation before labware on them can be reached.
const (
	HeaterShakerModel = "heaterShakerModuleV1"
	ThermocyclerV1    = "thermocyclerModuleV1"
	ThermocyclerV2    = "thermocyclerModuleV2"
)

// IsThermocycler reports whether model is any thermocycler generation.
func IsThermocycler(model string) bool {
	return model == ThermocyclerV1 || model == ThermocyclerV2
}

// Pipette returns the pipette with the given id.
func (d *Document) Pipette(id string) (*Pipette, bool) {
	for i := range d.Pipettes {
		if d.Pipettes[i].ID == id {
			return &d.Pipettes[i], true
		}
	}
	return nil, false
}

// LabwareByID returns the labware with the given id.
func (d *Document) LabwareByID(id string) (*Labware, bool) {
	for i := range d.Labware {
		if d.Labware[i].ID == id {
			return &d.Labware[i], true
		}
	}
	return nil, false
}

// ModuleByID returns the module with the given id.
func (d *Document) ModuleByID(id string) (*Module, bool) {
	for i := range d.Modules {
		if d.Modules[i].ID == id {
			return &d.Modules[i], true
		}
	}
	return nil, false
}

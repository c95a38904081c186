// Package protocoltest builds analysis documents for tests.
package protocoltest

import (
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// Builder assembles a protocol.Document one declaration at a time.
type Builder struct {
	doc protocol.Document
}

// New starts an empty document.
func New() *Builder {
	return &Builder{}
}

// Pipette declares a pipette on the given mount.
func (b *Builder) Pipette(id, mount string) *Builder {
	b.doc.Pipettes = append(b.doc.Pipettes, protocol.Pipette{ID: id, PipetteName: "p300_single_gen2", Mount: mount})
	return b
}

// Tiprack declares a tiprack in a deck slot.
func (b *Builder) Tiprack(id, slot string) *Builder {
	b.doc.Labware = append(b.doc.Labware, protocol.Labware{
		ID:            id,
		DefinitionURI: TiprackURI,
		DisplayName:   "Opentrons 96 Tip Rack 300 µL",
		Location:      location.Slot(slot),
		IsTiprack:     true,
	})
	return b
}

// Labware declares a plate at the given location.
func (b *Builder) Labware(id, uri string, loc location.LabwareLocation) *Builder {
	b.doc.Labware = append(b.doc.Labware, protocol.Labware{
		ID:            id,
		DefinitionURI: uri,
		DisplayName:   id,
		Location:      loc,
	})
	return b
}

// Plate declares a 96 well plate in a deck slot.
func (b *Builder) Plate(id, slot string) *Builder {
	return b.Labware(id, PlateURI, location.Slot(slot))
}

// Adapter declares an adapter at the given location.
func (b *Builder) Adapter(id string, loc location.LabwareLocation) *Builder {
	b.doc.Labware = append(b.doc.Labware, protocol.Labware{
		ID:            id,
		DefinitionURI: "opentrons/opentrons_96_flat_bottom_adapter/1",
		Location:      loc,
		IsAdapter:     true,
	})
	return b
}

// Module declares a module in a deck slot.
func (b *Builder) Module(id, model, slot string) *Builder {
	b.doc.Modules = append(b.doc.Modules, protocol.Module{ID: id, Model: model, Location: location.Slot(slot)})
	return b
}

// PickUpTip appends a pickUpTip command.
func (b *Builder) PickUpTip(pipetteID, tiprackID string) *Builder {
	return b.Command(protocol.CommandPickUpTip, protocol.Params{PipetteID: pipetteID, LabwareID: tiprackID, WellName: "A1"})
}

// Aspirate appends an aspirate command.
func (b *Builder) Aspirate(pipetteID, labwareID string) *Builder {
	return b.Command(protocol.CommandAspirate, protocol.Params{PipetteID: pipetteID, LabwareID: labwareID, WellName: "A1"})
}

// DropTip appends a dropTip command into the given labware.
func (b *Builder) DropTip(pipetteID, labwareID string) *Builder {
	return b.Command(protocol.CommandDropTip, protocol.Params{PipetteID: pipetteID, LabwareID: labwareID, WellName: "A1"})
}

// MoveLabware appends a moveLabware command.
func (b *Builder) MoveLabware(labwareID string, to location.LabwareLocation) *Builder {
	return b.Command(protocol.CommandMoveLabware, protocol.Params{LabwareID: labwareID, NewLocation: &to})
}

// Command appends an arbitrary command.
func (b *Builder) Command(commandType string, params protocol.Params) *Builder {
	b.doc.Commands = append(b.doc.Commands, protocol.Command{CommandType: commandType, Params: params})
	return b
}

// Hardcoded declares an offset baked into the protocol.
func (b *Builder) Hardcoded(id, uri string, seq location.Sequence, v vector.Vector3) *Builder {
	b.doc.HardcodedOffsets = append(b.doc.HardcodedOffsets, protocol.HardcodedOffset{ID: id, DefinitionURI: uri, Sequence: seq, Vector: v})
	return b
}

// Build returns the assembled document.
func (b *Builder) Build() *protocol.Document {
	doc := b.doc
	return &doc
}

// SinglePipette is the canonical fixture: one pipette, a tiprack in slot 1
// and a plate in slot 3.
func SinglePipette() *protocol.Document {
	return New().
		Pipette("p1", "left").
		Tiprack("tips", "1").
		Plate("plate", "3").
		PickUpTip("p1", "tips").
		Aspirate("p1", "plate").
		DropTip("p1", "tips").
		Build()
}

// PlateURI is the definition uri Plate uses.
const PlateURI = "opentrons/nest_96_wellplate_100ul_pcr_full_skirt/1"

// TiprackURI is the definition uri Tiprack uses.
const TiprackURI = "opentrons/opentrons_96_tiprack_300ul/1"

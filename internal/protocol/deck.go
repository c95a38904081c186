package protocol

import (
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
)

// Deck tracks where every labware currently sits while the command list is
// replayed.
type Deck struct {
	doc     *Document
	current map[string]location.LabwareLocation
}

// NewDeck starts tracking from the labware's initial locations.
func NewDeck(doc *Document) *Deck {
	d := &Deck{doc: doc, current: make(map[string]location.LabwareLocation, len(doc.Labware))}
	for _, l := range doc.Labware {
		d.current[l.ID] = l.Location
	}
	return d
}

// Apply updates labware placement for commands that change it.
func (d *Deck) Apply(c Command) {
	switch c.CommandType {
	case CommandLoadLabware:
		if c.Params.LabwareID != "" && c.Params.Location != nil {
			d.current[c.Params.LabwareID] = *c.Params.Location
		}
	case CommandMoveLabware:
		if c.Params.LabwareID != "" && c.Params.NewLocation != nil {
			d.current[c.Params.LabwareID] = *c.Params.NewLocation
		}
	}
}

// Location returns the current location of a labware.
func (d *Deck) Location(labwareID string) (location.LabwareLocation, bool) {
	loc, ok := d.current[labwareID]
	return loc, ok
}

// Sequence resolves a location into the stack it sits on, nearest parent
// first. Off-deck locations cannot be resolved.
func (d *Deck) Sequence(loc location.LabwareLocation) (location.Sequence, error) {
	var seq location.Sequence
	visited := make(map[string]bool)
	for depth := 0; ; depth++ {
		if depth > len(d.doc.Labware)+len(d.doc.Modules)+1 {
			return nil, fmt.Errorf("location %s: parent chain does not terminate", loc)
		}
		switch {
		case loc.OffDeck:
			return nil, fmt.Errorf("labware off deck has no location sequence")
		case loc.SlotName != "":
			return append(seq, location.SequenceComponent{Kind: location.OnAddressableArea, AddressableAreaName: loc.SlotName}), nil
		case loc.AddressableAreaName != "":
			return append(seq, location.SequenceComponent{Kind: location.OnAddressableArea, AddressableAreaName: loc.AddressableAreaName}), nil
		case loc.ModuleID != "":
			mod, ok := d.doc.ModuleByID(loc.ModuleID)
			if !ok {
				return nil, fmt.Errorf("location references unknown module %q", loc.ModuleID)
			}
			seq = append(seq, location.SequenceComponent{Kind: location.OnModuleKind, ModuleModel: mod.Model})
			loc = mod.Location
		case loc.LabwareID != "":
			if visited[loc.LabwareID] {
				return nil, fmt.Errorf("labware %q is stacked on itself", loc.LabwareID)
			}
			visited[loc.LabwareID] = true
			parent, ok := d.doc.LabwareByID(loc.LabwareID)
			if !ok {
				return nil, fmt.Errorf("location references unknown labware %q", loc.LabwareID)
			}
			seq = append(seq, location.SequenceComponent{Kind: location.OnLabwareKind, LabwareURI: parent.DefinitionURI})
			next, ok := d.current[loc.LabwareID]
			if !ok {
				next = parent.Location
			}
			loc = next
		default:
			return nil, fmt.Errorf("empty labware location")
		}
	}
}

// Placement describes the resolved stack beneath a location.
type Placement struct {
	SlotName  string
	ModuleID  string
	AdapterID string
	Sequence  location.Sequence
}

// Resolve walks a location down to the deck and reports the slot, the module
// (if any) and the adapter (if any) it passes through.
func (d *Deck) Resolve(loc location.LabwareLocation) (Placement, error) {
	seq, err := d.Sequence(loc)
	if err != nil {
		return Placement{}, err
	}
	p := Placement{Sequence: seq, SlotName: seq.SlotName()}

	cur := loc
	for cur.SlotName == "" && cur.AddressableAreaName == "" {
		switch {
		case cur.ModuleID != "":
			if p.ModuleID == "" {
				p.ModuleID = cur.ModuleID
			}
			mod, _ := d.doc.ModuleByID(cur.ModuleID)
			cur = mod.Location
		case cur.LabwareID != "":
			if p.AdapterID == "" {
				p.AdapterID = cur.LabwareID
			}
			next, ok := d.current[cur.LabwareID]
			if !ok {
				lw, _ := d.doc.LabwareByID(cur.LabwareID)
				next = lw.Location
			}
			cur = next
		default:
			return p, nil
		}
	}
	return p, nil
}

package steps

import (
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
)

// wellCommands target a well of a labware and therefore require that labware
// to be calibrated at its current location.
var wellCommands = map[string]bool{
	protocol.CommandMoveToWell: true,
	protocol.CommandAspirate:   true,
	protocol.CommandDispense:   true,
	protocol.CommandBlowOut:    true,
	protocol.CommandTouchTip:   true,
}

// tipPickup is a distinct (pipette, tiprack, location) triple.
type tipPickup struct {
	pipetteID string
	step      Step
}

// usage is the result of replaying the command list once.
type usage struct {
	checks       []Step
	pickups      []tipPickup
	pipetteOrder []string
	tipracksBy   map[string]map[string]bool
}

// Build derives the calibration steps for a protocol. It is pure and
// deterministic for a given document.
func Build(doc *protocol.Document) ([]Step, error) {
	if doc == nil {
		return nil, malformed("no analysis document")
	}
	if err := doc.Validate(); err != nil {
		return nil, &SequencingError{Reason: "invalid analysis", Err: fmt.Errorf("%w: %w", ErrMalformedProtocol, err)}
	}

	u, err := scan(doc)
	if err != nil {
		return nil, err
	}
	primary, secondary, err := choosePrimary(u)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, 2+len(u.checks)+2*len(u.pickups))
	steps = append(steps, Step{Kind: BeforeBeginning})
	for _, c := range u.checks {
		c.PipetteID = primary
		steps = append(steps, c)
	}
	for _, pipetteID := range []string{primary, secondary} {
		if pipetteID == "" {
			continue
		}
		for _, p := range u.pickups {
			if p.pipetteID != pipetteID {
				continue
			}
			pick := p.step
			pick.Kind = PickUpTip
			ret := p.step
			ret.Kind = ReturnTip
			steps = append(steps, pick, ret)
		}
	}
	steps = append(steps, Step{Kind: ResultsSummary})
	return steps, nil
}

// PrimaryPipette returns the pipette that leads the calibration sequence.
func PrimaryPipette(doc *protocol.Document) (string, error) {
	u, err := scan(doc)
	if err != nil {
		return "", err
	}
	primary, _, err := choosePrimary(u)
	return primary, err
}

// IsTwoPipette reports whether two pipettes pick up tips in the protocol.
func IsTwoPipette(doc *protocol.Document) bool {
	u, err := scan(doc)
	return err == nil && len(u.pipetteOrder) == 2
}

// Count returns how many steps of the given kind the list holds.
func Count(steps []Step, kind Kind) int {
	n := 0
	for _, s := range steps {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func scan(doc *protocol.Document) (*usage, error) {
	u := &usage{tipracksBy: make(map[string]map[string]bool)}
	deck := protocol.NewDeck(doc)

	tipracks := make(map[string]bool)
	loadedByCommand := make(map[string]bool)
	for _, l := range doc.Labware {
		if l.IsTiprack {
			tipracks[l.ID] = true
		}
	}
	for _, c := range doc.Commands {
		switch c.CommandType {
		case protocol.CommandPickUpTip:
			tipracks[c.Params.LabwareID] = true
		case protocol.CommandLoadLabware:
			loadedByCommand[c.Params.LabwareID] = true
		}
	}

	seenChecks := make(map[string]bool)
	addCheck := func(labwareID string) error {
		lw, ok := doc.LabwareByID(labwareID)
		if !ok {
			return malformed("unknown labware %q", labwareID)
		}
		if tipracks[lw.ID] || lw.IsAdapter {
			return nil
		}
		loc, _ := deck.Location(lw.ID)
		if loc.OffDeck {
			return nil
		}
		step, err := placed(deck, lw, loc)
		if err != nil {
			return err
		}
		step.Kind = CheckItem
		if seenChecks[step.Key()] {
			return nil
		}
		seenChecks[step.Key()] = true
		u.checks = append(u.checks, step)
		return nil
	}

	for _, l := range doc.Labware {
		if !loadedByCommand[l.ID] {
			if err := addCheck(l.ID); err != nil {
				return nil, err
			}
		}
	}

	seenPickups := make(map[string]bool)
	for _, c := range doc.Commands {
		deck.Apply(c)
		switch {
		case c.CommandType == protocol.CommandLoadLabware, c.CommandType == protocol.CommandMoveLabware:
			if err := addCheck(c.Params.LabwareID); err != nil {
				return nil, err
			}
		case wellCommands[c.CommandType] && c.Params.LabwareID != "":
			if err := addCheck(c.Params.LabwareID); err != nil {
				return nil, err
			}
		case c.CommandType == protocol.CommandPickUpTip:
			if c.Params.PipetteID == "" || c.Params.LabwareID == "" {
				return nil, malformed("pickUpTip command without pipette or labware")
			}
			lw, _ := doc.LabwareByID(c.Params.LabwareID)
			loc, _ := deck.Location(lw.ID)
			if loc.OffDeck {
				return nil, malformed("tip pickup from off-deck tiprack %q", lw.ID)
			}
			step, err := placed(deck, lw, loc)
			if err != nil {
				return nil, err
			}
			step.PipetteID = c.Params.PipetteID
			step.IsTiprack = true

			if _, ok := u.tipracksBy[step.PipetteID]; !ok {
				u.tipracksBy[step.PipetteID] = make(map[string]bool)
				u.pipetteOrder = append(u.pipetteOrder, step.PipetteID)
			}
			u.tipracksBy[step.PipetteID][step.Key()] = true

			key := step.PipetteID + "|" + step.Key()
			if !seenPickups[key] {
				seenPickups[key] = true
				u.pickups = append(u.pickups, tipPickup{pipetteID: step.PipetteID, step: step})
			}
		}
	}
	return u, nil
}

func placed(deck *protocol.Deck, lw *protocol.Labware, loc location.LabwareLocation) (Step, error) {
	p, err := deck.Resolve(loc)
	if err != nil {
		return Step{}, malformed("labware %q: %v", lw.ID, err)
	}
	return Step{
		LabwareID:     lw.ID,
		DefinitionURI: lw.DefinitionURI,
		Location:      loc,
		Sequence:      p.Sequence,
		SlotName:      p.SlotName,
		ModuleID:      p.ModuleID,
		AdapterID:     p.AdapterID,
	}, nil
}

// choosePrimary picks the pipette whose tiprack set is a superset of the
// other's. Equal or unrelated sets fall back to command order: the first
// pipette to pick up a tip leads.
func choosePrimary(u *usage) (primary, secondary string, err error) {
	switch len(u.pipetteOrder) {
	case 0:
		return "", "", &SequencingError{Err: ErrNoTipPickup}
	case 1:
		return u.pipetteOrder[0], "", nil
	case 2:
	default:
		return "", "", malformed("%d pipettes pick up tips, at most two are supported", len(u.pipetteOrder))
	}

	first, second := u.pipetteOrder[0], u.pipetteOrder[1]
	firstCoversSecond := covers(u.tipracksBy[first], u.tipracksBy[second])
	secondCoversFirst := covers(u.tipracksBy[second], u.tipracksBy[first])
	if secondCoversFirst && !firstCoversSecond {
		return second, first, nil
	}
	return first, second, nil
}

func covers(super, sub map[string]bool) bool {
	for k := range sub {
		if !super[k] {
			return false
		}
	}
	return true
}

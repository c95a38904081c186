package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDocument wraps every structural problem found by Validate.
var ErrInvalidDocument = errors.New("invalid protocol analysis document")

// Validate performs structural checks: unique ids, well-formed locations and
// command references that resolve to loaded hardware.
func (d *Document) Validate() error {
	var errs []string

	seen := make(map[string]string)
	claim := func(kind, id string) {
		if id == "" {
			errs = append(errs, fmt.Sprintf("%s with empty id", kind))
			return
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Sprintf("%s id %q already used by a %s", kind, id, prev))
			return
		}
		seen[id] = kind
	}
	for _, p := range d.Pipettes {
		claim("pipette", p.ID)
	}
	for _, m := range d.Modules {
		claim("module", m.ID)
		if err := m.Location.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("module %q: %v", m.ID, err))
		}
	}
	for _, l := range d.Labware {
		claim("labware", l.ID)
		if l.DefinitionURI == "" {
			errs = append(errs, fmt.Sprintf("labware %q has no definition uri", l.ID))
		}
		if err := l.Location.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("labware %q: %v", l.ID, err))
		}
	}

	for i, c := range d.Commands {
		if c.CommandType == "" {
			errs = append(errs, fmt.Sprintf("command %d has no command type", i))
			continue
		}
		if c.Params.PipetteID != "" {
			if _, ok := d.Pipette(c.Params.PipetteID); !ok {
				errs = append(errs, fmt.Sprintf("command %d (%s) references unknown pipette %q", i, c.CommandType, c.Params.PipetteID))
			}
		}
		if c.Params.LabwareID != "" {
			if _, ok := d.LabwareByID(c.Params.LabwareID); !ok {
				errs = append(errs, fmt.Sprintf("command %d (%s) references unknown labware %q", i, c.CommandType, c.Params.LabwareID))
			}
		}
		if c.CommandType == CommandMoveLabware && c.Params.NewLocation == nil {
			errs = append(errs, fmt.Sprintf("command %d (moveLabware) has no new location", i))
		}
	}

	for _, h := range d.HardcodedOffsets {
		if err := h.Sequence.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("hardcoded offset %q: %v", h.ID, err))
		}
		if err := h.Vector.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("hardcoded offset %q: %v", h.ID, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidDocument, strings.Join(errs, "\n- "))
	}
	return nil
}

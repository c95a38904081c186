package location

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const offDeckValue = "offDeck"

// LabwareLocation is the immediate parent of a labware. Exactly one field is
// set, or OffDeck is true.
type LabwareLocation struct {
	SlotName            string `json:"slotName,omitempty" yaml:"slot_name,omitempty"`
	ModuleID            string `json:"moduleId,omitempty" yaml:"module_id,omitempty"`
	LabwareID           string `json:"labwareId,omitempty" yaml:"labware_id,omitempty"`
	AddressableAreaName string `json:"addressableAreaName,omitempty" yaml:"addressable_area_name,omitempty"`
	OffDeck             bool   `json:"-" yaml:"off_deck,omitempty"`
}

// Slot is a convenience constructor for a deck slot location.
func Slot(name string) LabwareLocation {
	return LabwareLocation{SlotName: name}
}

// OnModule is a convenience constructor for a module location.
func OnModule(moduleID string) LabwareLocation {
	return LabwareLocation{ModuleID: moduleID}
}

// OnLabware is a convenience constructor for a location on top of an adapter
// or another labware.
func OnLabware(labwareID string) LabwareLocation {
	return LabwareLocation{LabwareID: labwareID}
}

// OffDeckLocation returns the off-deck location.
func OffDeckLocation() LabwareLocation {
	return LabwareLocation{OffDeck: true}
}

// Key serializes the location into a canonical string. Fields are written in
// sorted order and empty fields are omitted.
func (l LabwareLocation) Key() string {
	if l.OffDeck {
		return offDeckValue
	}
	fields := map[string]string{
		"addressableAreaName": l.AddressableAreaName,
		"labwareId":           l.LabwareID,
		"moduleId":            l.ModuleID,
		"slotName":            l.SlotName,
	}
	names := make([]string, 0, len(fields))
	for name, val := range fields {
		if val != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteRune(';')
		}
		sb.WriteString(name)
		sb.WriteRune('=')
		sb.WriteString(fields[name])
	}
	return sb.String()
}

// Equal compares two locations by canonical key.
func (l LabwareLocation) Equal(o LabwareLocation) bool {
	return l.Key() == o.Key()
}

// IsZero reports whether no placement was given at all.
func (l LabwareLocation) IsZero() bool {
	return l.Key() == ""
}

// Validate checks that exactly one kind of parent is named.
func (l LabwareLocation) Validate() error {
	set := 0
	for _, v := range []string{l.SlotName, l.ModuleID, l.LabwareID, l.AddressableAreaName} {
		if v != "" {
			set++
		}
	}
	if l.OffDeck {
		set++
	}
	if set != 1 {
		return fmt.Errorf("labware location %q must name exactly one parent", l.Key())
	}
	return nil
}

func (l LabwareLocation) String() string {
	switch {
	case l.OffDeck:
		return "off deck"
	case l.SlotName != "":
		return "slot " + l.SlotName
	case l.ModuleID != "":
		return "module " + l.ModuleID
	case l.LabwareID != "":
		return "labware " + l.LabwareID
	case l.AddressableAreaName != "":
		return "area " + l.AddressableAreaName
	}
	return "unknown location"
}

// MarshalJSON writes the off-deck location as the bare string used by the
// analysis document.
func (l LabwareLocation) MarshalJSON() ([]byte, error) {
	if l.OffDeck {
		return json.Marshal(offDeckValue)
	}
	type plain LabwareLocation
	return json.Marshal(plain(l))
}

// UnmarshalJSON accepts either an object or the string "offDeck".
func (l *LabwareLocation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != offDeckValue {
			return fmt.Errorf("unknown labware location %q", s)
		}
		*l = OffDeckLocation()
		return nil
	}
	type plain LabwareLocation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode labware location: %w", err)
	}
	*l = LabwareLocation(p)
	return nil
}

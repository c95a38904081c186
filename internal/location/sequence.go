package location

import (
	"fmt"
	"strings"
)

// ComponentKind names one layer of an offset location sequence.
type ComponentKind string

const (
	OnLabwareKind     ComponentKind = "onLabware"
	OnModuleKind      ComponentKind = "onModule"
	OnAddressableArea ComponentKind = "onAddressableArea"
	// OnAnyLocation marks a default offset that applies wherever the
	// labware definition is placed.
	OnAnyLocation ComponentKind = "onAnyLocation"
)

// SequenceComponent is one layer of a resolved placement.
type SequenceComponent struct {
	Kind                ComponentKind `json:"kind" yaml:"kind"`
	LabwareURI          string        `json:"labwareUri,omitempty" yaml:"labware_uri,omitempty"`
	ModuleModel         string        `json:"moduleModel,omitempty" yaml:"module_model,omitempty"`
	AddressableAreaName string        `json:"addressableAreaName,omitempty" yaml:"addressable_area_name,omitempty"`
}

func (c SequenceComponent) key() string {
	switch c.Kind {
	case OnLabwareKind:
		return string(c.Kind) + ":" + c.LabwareURI
	case OnModuleKind:
		return string(c.Kind) + ":" + c.ModuleModel
	case OnAddressableArea:
		return string(c.Kind) + ":" + c.AddressableAreaName
	}
	return string(c.Kind)
}

// Sequence is the stack a labware sits on, nearest parent first.
type Sequence []SequenceComponent

// AnyLocation is the sequence default offsets are stored under.
func AnyLocation() Sequence {
	return Sequence{{Kind: OnAnyLocation}}
}

// IsDefault reports whether the sequence describes a default offset.
func (s Sequence) IsDefault() bool {
	return len(s) == 1 && s[0].Kind == OnAnyLocation
}

// keySeparator joins components in a key. Definition URIs contain '/', so
// it must not.
const keySeparator = ">"

// Key is the canonical serialization used to match stored offsets.
func (s Sequence) Key() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.key()
	}
	return strings.Join(parts, keySeparator)
}

// SlotName returns the addressable area at the bottom of the stack.
func (s Sequence) SlotName() string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Kind == OnAddressableArea {
			return s[i].AddressableAreaName
		}
	}
	return ""
}

// Validate checks that the stack ends on the deck or is the default marker.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty location sequence")
	}
	if s.IsDefault() {
		return nil
	}
	if s[len(s)-1].Kind != OnAddressableArea {
		return fmt.Errorf("location sequence %q does not end on an addressable area", s.Key())
	}
	return nil
}

// ParseSequenceKey is the inverse of Sequence.Key.
func ParseSequenceKey(key string) (Sequence, error) {
	if key == "" {
		return nil, fmt.Errorf("empty location sequence key")
	}
	var seq Sequence
	for _, part := range strings.Split(key, keySeparator) {
		kind, val, _ := strings.Cut(part, ":")
		c := SequenceComponent{Kind: ComponentKind(kind)}
		switch c.Kind {
		case OnLabwareKind:
			c.LabwareURI = val
		case OnModuleKind:
			c.ModuleModel = val
		case OnAddressableArea:
			c.AddressableAreaName = val
		case OnAnyLocation:
		default:
			return nil, fmt.Errorf("unknown location sequence component %q", part)
		}
		seq = append(seq, c)
	}
	return seq, nil
}

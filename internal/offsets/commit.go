package offsets

import (
	"slices"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
)

// Clone deep-copies infos so callers can hand them out or project changes
// without touching the originals.
func Clone(infos []LabwareInfo) []LabwareInfo {
	out := make([]LabwareInfo, len(infos))
	for i, info := range infos {
		out[i] = info
		out[i].Default.Existing = cloneExisting(info.Default.Existing)
		out[i].Default.Working = cloneWorking(info.Default.Working)
		out[i].LocationSpecific = make([]LocationSpecificOffsetDetails, len(info.LocationSpecific))
		for j, d := range info.LocationSpecific {
			d.Sequence = slices.Clone(d.Sequence)
			d.Existing = cloneExisting(d.Existing)
			d.Working = cloneWorking(d.Working)
			if d.HardCodedVector != nil {
				d.HardCodedVector = d.HardCodedVector.Ptr()
			}
			out[i].LocationSpecific[j] = d
		}
	}
	return out
}

func cloneExisting(e *ExistingOffset) *ExistingOffset {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func cloneWorking(w *WorkingOffset) *WorkingOffset {
	if w == nil {
		return nil
	}
	c := *w
	if w.Confirmed != nil {
		c.Confirmed = w.Confirmed.Ptr()
	}
	return &c
}

// Commit returns a copy of infos with the working values folded in as if
// they had been persisted. Records in stored become the existing offsets of
// the placements they match; reset placements lose their existing offset.
// Working values are cleared.
func Commit(infos []LabwareInfo, stored []LabwareOffset) []LabwareInfo {
	byKey := make(map[string]LabwareOffset, len(stored))
	for _, lo := range stored {
		byKey[lo.DefinitionURI+"|"+lo.Sequence.Key()] = lo
	}
	lookup := func(uri string, seq location.Sequence) (*ExistingOffset, bool) {
		lo, ok := byKey[uri+"|"+seq.Key()]
		if !ok {
			return nil, false
		}
		return &ExistingOffset{ID: lo.ID, Vector: lo.Vector, CreatedAt: lo.CreatedAt}, true
	}

	out := Clone(infos)
	for i := range out {
		info := &out[i]
		if w := info.Default.Working; w != nil && w.Confirmed != nil {
			if e, ok := lookup(info.DefinitionURI, location.AnyLocation()); ok {
				info.Default.Existing = e
			}
		}
		info.Default.Working = nil

		for j := range info.LocationSpecific {
			d := &info.LocationSpecific[j]
			switch w := d.Working; {
			case w == nil:
			case w.ResetToDefault:
				d.Existing = nil
			case w.Confirmed != nil:
				if e, ok := lookup(info.DefinitionURI, d.Sequence); ok {
					d.Existing = e
				}
			}
			d.Working = nil
		}
	}
	return out
}

// Preview is Commit with every upsert in writes assumed to succeed as
// written. It lets a caller check the resolution before persisting anything.
func Preview(infos []LabwareInfo, writes []Write) []LabwareInfo {
	var stored []LabwareOffset
	for _, w := range writes {
		if w.Kind != WriteUpsert {
			continue
		}
		stored = append(stored, LabwareOffset{
			DefinitionURI: w.DefinitionURI,
			Sequence:      w.Sequence,
			Vector:        w.Vector,
		})
	}
	return Commit(infos, stored)
}

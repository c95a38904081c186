package offsets

import (
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
)

// BuildLabwareInfo gathers the offset details for every labware definition
// the steps calibrate. Stored offsets are matched by definition uri and
// location sequence; when several match, the newest wins.
func BuildLabwareInfo(doc *protocol.Document, stepList []steps.Step, existing []LabwareOffset) []LabwareInfo {
	latest := make(map[string]LabwareOffset)
	for _, o := range existing {
		key := o.DefinitionURI + "|" + o.Sequence.Key()
		if prev, ok := latest[key]; !ok || o.CreatedAt.After(prev.CreatedAt) {
			latest[key] = o
		}
	}
	lookup := func(uri, seqKey string) *ExistingOffset {
		o, ok := latest[uri+"|"+seqKey]
		if !ok {
			return nil
		}
		return &ExistingOffset{ID: o.ID, Vector: o.Vector, CreatedAt: o.CreatedAt}
	}

	hardcoded := make(map[string]protocol.HardcodedOffset)
	for _, h := range doc.HardcodedOffsets {
		hardcoded[h.DefinitionURI+"|"+h.Sequence.Key()] = h
	}

	var infos []LabwareInfo
	index := make(map[string]int)
	seenPlacement := make(map[string]bool)

	for _, s := range stepList {
		if s.Kind != steps.CheckItem && s.Kind != steps.PickUpTip {
			continue
		}
		i, ok := index[s.DefinitionURI]
		if !ok {
			name := s.DefinitionURI
			if lw, found := doc.LabwareByID(s.LabwareID); found && lw.DisplayName != "" {
				name = lw.DisplayName
			}
			infos = append(infos, LabwareInfo{
				DefinitionURI: s.DefinitionURI,
				DisplayName:   name,
				Default: DefaultOffsetDetails{
					DefinitionURI: s.DefinitionURI,
					LabwareID:     s.LabwareID,
					Existing:      lookup(s.DefinitionURI, defaultSequenceKey),
				},
			})
			i = len(infos) - 1
			index[s.DefinitionURI] = i
		}

		seqKey := s.Sequence.Key()
		if seenPlacement[s.DefinitionURI+"|"+seqKey] {
			continue
		}
		seenPlacement[s.DefinitionURI+"|"+seqKey] = true

		d := LocationSpecificOffsetDetails{
			DefinitionURI: s.DefinitionURI,
			LabwareID:     s.LabwareID,
			Location:      s.Location,
			Sequence:      s.Sequence,
			SlotName:      s.SlotName,
			Existing:      lookup(s.DefinitionURI, seqKey),
		}
		if h, ok := hardcoded[s.DefinitionURI+"|"+seqKey]; ok {
			d.HardCodedOffsetID = h.ID
			d.HardCodedVector = h.Vector.Ptr()
		}
		infos[i].LocationSpecific = append(infos[i].LocationSpecific, d)
	}

	for i := range infos {
		SortLocationSpecific(infos[i].LocationSpecific)
	}
	return infos
}

var defaultSequenceKey = location.AnyLocation().Key()

package offsets

import (
	"fmt"
	"slices"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// IsNecessaryDefaultOffsetMissing reports whether the default offset is
// absent while some placement still depends on it. A placement depends on
// the default unless it is hardcoded or has its own persisted offset.
func IsNecessaryDefaultOffsetMissing(info LabwareInfo) bool {
	if info.Default.Existing != nil {
		return false
	}
	for _, d := range info.LocationSpecific {
		if !d.IsHardCoded() && d.Existing == nil {
			return true
		}
	}
	return false
}

// IsLocationSpecificOffsetMissing reports whether a placement has no
// persisted offset of its own and none from the protocol.
func IsLocationSpecificOffsetMissing(d LocationSpecificOffsetDetails) bool {
	return d.Existing == nil && !d.IsHardCoded()
}

// MostRecentVector returns the newest known value: the working value if one
// was confirmed, else the persisted one. A reset working value defers to the
// default, which the caller resolves, so it yields nil.
func MostRecentVector(existing *ExistingOffset, working *WorkingOffset) *vector.Vector3 {
	if working != nil {
		if working.ResetToDefault {
			return nil
		}
		if working.Confirmed != nil {
			return working.Confirmed.Ptr()
		}
	}
	if existing != nil {
		return existing.Vector.Ptr()
	}
	return nil
}

// EffectiveVector is the offset the robot should apply right now when moving
// to a placement: the hardcoded value, the placement's most recent value, or
// the default's most recent value. The second result is false when none of
// these exist and the nominal position must be used.
func EffectiveVector(info LabwareInfo, seq location.Sequence) (vector.Vector3, bool) {
	if i := info.indexOf(seq); i >= 0 {
		d := info.LocationSpecific[i]
		if d.HardCodedVector != nil {
			return *d.HardCodedVector, true
		}
		if v := MostRecentVector(d.Existing, d.Working); v != nil {
			return *v, true
		}
	}
	if v := MostRecentVector(info.Default.Existing, info.Default.Working); v != nil {
		return *v, true
	}
	return vector.Zero, false
}

// OffsetsToAddToRun resolves the offset for every non-hardcoded placement:
// its own persisted vector, else the persisted default. A placement with
// neither is a ConsistencyError.
func OffsetsToAddToRun(infos []LabwareInfo) ([]OffsetCreateData, error) {
	var out []OffsetCreateData
	for _, info := range infos {
		for _, d := range info.LocationSpecific {
			if d.IsHardCoded() {
				continue
			}
			var v vector.Vector3
			switch {
			case d.Existing != nil:
				v = d.Existing.Vector
			case info.Default.Existing != nil:
				v = info.Default.Existing.Vector
			default:
				return nil, &ConsistencyError{
					DefinitionURI: info.DefinitionURI,
					SlotName:      d.SlotName,
					SequenceKey:   d.Sequence.Key(),
				}
			}
			out = append(out, OffsetCreateData{
				DefinitionURI: info.DefinitionURI,
				Sequence:      slices.Clone(d.Sequence),
				Vector:        v,
			})
		}
	}
	return out, nil
}

// ResolveOffsetsToApply is called once when the results summary is accepted.
func ResolveOffsetsToApply(infos []LabwareInfo) ([]OffsetCreateData, error) {
	data, err := OffsetsToAddToRun(infos)
	if err != nil {
		return nil, fmt.Errorf("resolve offsets to apply: %w", err)
	}
	return data, nil
}

// PendingWrites turns working values into datastore operations.
func PendingWrites(infos []LabwareInfo) ([]Write, error) {
	var out []Write
	for _, info := range infos {
		if w := info.Default.Working; w != nil {
			if w.ResetToDefault {
				return nil, fmt.Errorf("%s: %w", info.DefinitionURI, ErrResetDefault)
			}
			if w.Confirmed != nil {
				out = append(out, Write{
					Kind:          WriteUpsert,
					DefinitionURI: info.DefinitionURI,
					Sequence:      location.AnyLocation(),
					Vector:        *w.Confirmed,
				})
			}
		}

		for _, d := range info.LocationSpecific {
			w := d.Working
			if w == nil {
				continue
			}
			if d.IsHardCoded() {
				return nil, fmt.Errorf("%s in slot %s: %w", info.DefinitionURI, d.SlotName, ErrHardcodedOffset)
			}
			switch {
			case w.ResetToDefault:
				if d.Existing == nil {
					continue
				}
				out = append(out, Write{Kind: WriteDelete, ID: d.Existing.ID})
			case w.Confirmed != nil:
				out = append(out, Write{
					Kind:          WriteUpsert,
					DefinitionURI: info.DefinitionURI,
					Sequence:      slices.Clone(d.Sequence),
					Vector:        *w.Confirmed,
				})
			}
		}
	}
	return out, nil
}

// SortLocationSpecific orders placements by slot label, naturally ascending.
func SortLocationSpecific(details []LocationSpecificOffsetDetails) {
	slices.SortStableFunc(details, func(a, b LocationSpecificOffsetDetails) int {
		return location.CompareSlots(a.SlotName, b.SlotName)
	})
}

// Conflict describes a LabwareInfo that cannot be resolved unambiguously.
type Conflict struct {
	SequenceKey string
	Reason      string
}

// Conflicts lists duplicated placements and working values on hardcoded
// placements.
func Conflicts(info LabwareInfo) []Conflict {
	var out []Conflict
	seen := make(map[string]bool)
	for _, d := range info.LocationSpecific {
		key := d.Sequence.Key()
		if seen[key] {
			out = append(out, Conflict{SequenceKey: key, Reason: "placement listed more than once"})
		}
		seen[key] = true
		if d.IsHardCoded() && d.Working != nil {
			out = append(out, Conflict{SequenceKey: key, Reason: "working offset on a hardcoded placement"})
		}
	}
	return out
}

func (info LabwareInfo) indexOf(seq location.Sequence) int {
	key := seq.Key()
	for i, d := range info.LocationSpecific {
		if d.Sequence.Key() == key {
			return i
		}
	}
	return -1
}

// SetLocationWorking records a working value for one placement.
func (info *LabwareInfo) SetLocationWorking(seq location.Sequence, w *WorkingOffset) error {
	i := info.indexOf(seq)
	if i < 0 {
		return fmt.Errorf("%s at %s: %w", info.DefinitionURI, seq.Key(), ErrUnknownLocation)
	}
	if info.LocationSpecific[i].IsHardCoded() {
		return fmt.Errorf("%s in slot %s: %w", info.DefinitionURI, info.LocationSpecific[i].SlotName, ErrHardcodedOffset)
	}
	info.LocationSpecific[i].Working = w
	return nil
}

// SetDefaultWorking records a working value for the default offset.
func (info *LabwareInfo) SetDefaultWorking(w *WorkingOffset) error {
	if w != nil && w.ResetToDefault {
		return fmt.Errorf("%s: %w", info.DefinitionURI, ErrResetDefault)
	}
	info.Default.Working = w
	return nil
}

// Find returns the info for a definition uri.
func Find(infos []LabwareInfo, uri string) (*LabwareInfo, bool) {
	for i := range infos {
		if infos[i].DefinitionURI == uri {
			return &infos[i], true
		}
	}
	return nil, false
}

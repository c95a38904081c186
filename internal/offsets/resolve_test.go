package offsets

import (
	"testing"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plateURI = "opentrons/nest_96_wellplate_100ul_pcr_full_skirt/1"

func slotSeq(slot string) location.Sequence {
	return location.Sequence{{Kind: location.OnAddressableArea, AddressableAreaName: slot}}
}

func existing(id string, v vector.Vector3) *ExistingOffset {
	return &ExistingOffset{ID: id, Vector: v}
}

func placement(slot string) LocationSpecificOffsetDetails {
	return LocationSpecificOffsetDetails{
		DefinitionURI: plateURI,
		LabwareID:     "plate",
		Location:      location.Slot(slot),
		Sequence:      slotSeq(slot),
		SlotName:      slot,
	}
}

func TestIsNecessaryDefaultOffsetMissing(t *testing.T) {
	tests := []struct {
		name    string
		info    LabwareInfo
		missing bool
	}{
		{
			name:    "default exists",
			info:    LabwareInfo{Default: DefaultOffsetDetails{Existing: existing("d", vector.Zero)}, LocationSpecific: []LocationSpecificOffsetDetails{placement("1")}},
			missing: false,
		},
		{
			name:    "placement without own offset needs default",
			info:    LabwareInfo{LocationSpecific: []LocationSpecificOffsetDetails{placement("1")}},
			missing: true,
		},
		{
			name: "every placement hardcoded or persisted",
			info: func() LabwareInfo {
				hard := placement("1")
				hard.HardCodedOffsetID = "hc-1"
				own := placement("2")
				own.Existing = existing("o", vector.Vector3{X: 1})
				return LabwareInfo{LocationSpecific: []LocationSpecificOffsetDetails{hard, own}}
			}(),
			missing: false,
		},
		{
			name:    "no placements",
			info:    LabwareInfo{},
			missing: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, IsNecessaryDefaultOffsetMissing(tt.info))
		})
	}
}

func TestIsLocationSpecificOffsetMissing(t *testing.T) {
	d := placement("1")
	assert.True(t, IsLocationSpecificOffsetMissing(d))

	d.HardCodedOffsetID = "hc"
	assert.False(t, IsLocationSpecificOffsetMissing(d), "hardcoded offsets are never missing")

	d = placement("1")
	d.Existing = existing("x", vector.Zero)
	assert.False(t, IsLocationSpecificOffsetMissing(d))
}

func TestMostRecentVector(t *testing.T) {
	ex := existing("x", vector.Vector3{X: 1})

	assert.Nil(t, MostRecentVector(nil, nil))
	assert.Equal(t, vector.Vector3{X: 1}, *MostRecentVector(ex, nil))
	assert.Equal(t, vector.Vector3{Y: 2}, *MostRecentVector(ex, Confirmed(vector.Vector3{Y: 2})))
	assert.Nil(t, MostRecentVector(ex, ResetToDefault()))
	assert.Equal(t, vector.Vector3{X: 1}, *MostRecentVector(ex, &WorkingOffset{}))
}

func TestOffsetsToAddToRun_PrefersOwnThenDefault(t *testing.T) {
	own := placement("1")
	own.Existing = existing("own", vector.Vector3{X: 1})
	fallback := placement("2")
	hard := placement("3")
	hard.HardCodedOffsetID = "hc"

	infos := []LabwareInfo{{
		DefinitionURI:    plateURI,
		Default:          DefaultOffsetDetails{Existing: existing("def", vector.Vector3{Z: 5})},
		LocationSpecific: []LocationSpecificOffsetDetails{own, fallback, hard},
	}}

	data, err := OffsetsToAddToRun(infos)
	require.NoError(t, err)
	require.Len(t, data, 2, "hardcoded placements are not pushed")
	assert.Equal(t, vector.Vector3{X: 1}, data[0].Vector)
	assert.Equal(t, vector.Vector3{Z: 5}, data[1].Vector)
	assert.Equal(t, "2", data[1].Sequence.SlotName())
}

func TestOffsetsToAddToRun_MissingBothIsConsistencyError(t *testing.T) {
	infos := []LabwareInfo{{DefinitionURI: plateURI, LocationSpecific: []LocationSpecificOffsetDetails{placement("4")}}}

	data, err := OffsetsToAddToRun(infos)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrConsistency)

	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "4", cerr.SlotName)

	_, err = ResolveOffsetsToApply(infos)
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestPendingWrites(t *testing.T) {
	reset := placement("1")
	reset.Existing = existing("to-delete", vector.Vector3{X: 1})
	reset.Working = ResetToDefault()

	resetNothing := placement("2")
	resetNothing.Working = ResetToDefault()

	confirmed := placement("3")
	confirmed.Working = Confirmed(vector.Vector3{Y: 0.5})

	untouched := placement("4")

	infos := []LabwareInfo{{
		DefinitionURI:    plateURI,
		Default:          DefaultOffsetDetails{Working: Confirmed(vector.Vector3{Z: 1})},
		LocationSpecific: []LocationSpecificOffsetDetails{reset, resetNothing, confirmed, untouched},
	}}

	writes, err := PendingWrites(infos)
	require.NoError(t, err)
	require.Len(t, writes, 3)

	assert.Equal(t, WriteUpsert, writes[0].Kind)
	assert.True(t, writes[0].Sequence.IsDefault())
	assert.Equal(t, vector.Vector3{Z: 1}, writes[0].Vector)

	assert.Equal(t, Write{Kind: WriteDelete, ID: "to-delete"}, writes[1])

	assert.Equal(t, WriteUpsert, writes[2].Kind)
	assert.Equal(t, "3", writes[2].Sequence.SlotName())
	assert.Equal(t, vector.Vector3{Y: 0.5}, writes[2].Vector)
}

func TestPendingWrites_Rejections(t *testing.T) {
	_, err := PendingWrites([]LabwareInfo{{Default: DefaultOffsetDetails{Working: ResetToDefault()}}})
	assert.ErrorIs(t, err, ErrResetDefault)

	hard := placement("1")
	hard.HardCodedOffsetID = "hc"
	hard.Working = Confirmed(vector.Zero)
	_, err = PendingWrites([]LabwareInfo{{LocationSpecific: []LocationSpecificOffsetDetails{hard}}})
	assert.ErrorIs(t, err, ErrHardcodedOffset)
}

func TestSortLocationSpecific(t *testing.T) {
	details := []LocationSpecificOffsetDetails{placement("C2"), placement("10"), placement("A1"), placement("2")}
	SortLocationSpecific(details)

	var slots []string
	for _, d := range details {
		slots = append(slots, d.SlotName)
	}
	assert.Equal(t, []string{"2", "10", "A1", "C2"}, slots)
}

func TestEffectiveVector(t *testing.T) {
	info := LabwareInfo{
		Default:          DefaultOffsetDetails{Existing: existing("d", vector.Vector3{Z: 1})},
		LocationSpecific: []LocationSpecificOffsetDetails{placement("1"), placement("2")},
	}
	info.LocationSpecific[1].Existing = existing("own", vector.Vector3{X: 2})

	v, ok := EffectiveVector(info, slotSeq("1"))
	assert.True(t, ok)
	assert.Equal(t, vector.Vector3{Z: 1}, v)

	v, ok = EffectiveVector(info, slotSeq("2"))
	assert.True(t, ok)
	assert.Equal(t, vector.Vector3{X: 2}, v)

	_, ok = EffectiveVector(LabwareInfo{}, slotSeq("1"))
	assert.False(t, ok)
}

func TestSetWorking(t *testing.T) {
	hard := placement("2")
	hard.HardCodedOffsetID = "hc"
	info := LabwareInfo{DefinitionURI: plateURI, LocationSpecific: []LocationSpecificOffsetDetails{placement("1"), hard}}

	require.NoError(t, info.SetLocationWorking(slotSeq("1"), Confirmed(vector.Vector3{X: 1})))
	assert.NotNil(t, info.LocationSpecific[0].Working)

	assert.ErrorIs(t, info.SetLocationWorking(slotSeq("2"), Confirmed(vector.Zero)), ErrHardcodedOffset)
	assert.ErrorIs(t, info.SetLocationWorking(slotSeq("9"), Confirmed(vector.Zero)), ErrUnknownLocation)
	assert.ErrorIs(t, info.SetDefaultWorking(ResetToDefault()), ErrResetDefault)
}

func TestConflicts(t *testing.T) {
	hard := placement("2")
	hard.HardCodedOffsetID = "hc"
	hard.Working = Confirmed(vector.Zero)
	info := LabwareInfo{LocationSpecific: []LocationSpecificOffsetDetails{placement("1"), placement("1"), hard}}

	conflicts := Conflicts(info)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "placement listed more than once", conflicts[0].Reason)
	assert.Equal(t, "working offset on a hardcoded placement", conflicts[1].Reason)
}

func TestExistingTimestampsKept(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &ExistingOffset{ID: "x", CreatedAt: now}
	assert.Equal(t, now, e.CreatedAt)
}

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/flow"
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const plateURI = "opentrons/nest_96_wellplate_100ul_pcr_full_skirt/1"

func placement(slot string) offsets.LocationSpecificOffsetDetails {
	return offsets.LocationSpecificOffsetDetails{
		DefinitionURI: plateURI,
		SlotName:      slot,
		Sequence:      location.Sequence{{Kind: location.OnAddressableArea, AddressableAreaName: slot}},
	}
}

func sampleInfos() []offsets.LabwareInfo {
	own := placement("1")
	own.Working = offsets.Confirmed(vector.Vector3{X: 0.5})
	fallback := placement("2")
	hard := placement("3")
	hard.HardCodedOffsetID = "hc"
	hard.HardCodedVector = &vector.Vector3{Z: 1}
	return []offsets.LabwareInfo{{
		DefinitionURI:    plateURI,
		DisplayName:      "PCR plate",
		Default:          offsets.DefaultOffsetDetails{Existing: &offsets.ExistingOffset{ID: "d", Vector: vector.Vector3{Y: 2}}},
		LocationSpecific: []offsets.LocationSpecificOffsetDetails{own, fallback, hard},
	}}
}

func TestSummarize(t *testing.T) {
	rows := Summarize(sampleInfos())
	require.Len(t, rows, 3)

	assert.Equal(t, SourceLocation, rows[0].Source)
	assert.True(t, rows[0].Pending)
	assert.Equal(t, vector.Vector3{X: 0.5}, *rows[0].Vector)

	assert.Equal(t, SourceDefault, rows[1].Source)
	assert.Equal(t, vector.Vector3{Y: 2}, *rows[1].Vector)

	assert.Equal(t, SourceHardcoded, rows[2].Source)
}

func TestSummarize_NoOffset(t *testing.T) {
	rows := Summarize([]offsets.LabwareInfo{{DefinitionURI: plateURI, LocationSpecific: []offsets.LocationSpecificOffsetDetails{placement("4")}}})
	require.Len(t, rows, 1)
	assert.Equal(t, SourceNone, rows[0].Source)
	assert.Nil(t, rows[0].Vector)
}

func TestWrite_YAML(t *testing.T) {
	r := FromApplied(flow.Applied{
		RunID:   "run-1",
		Applied: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Infos:   sampleInfos(),
		Run:     []offsets.OffsetCreateData{{DefinitionURI: plateURI, Vector: vector.Vector3{X: 0.5}}},
	})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "run_id: run-1")
	assert.Contains(t, out, "source: hardcoded")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded["labware"], 3)
}

func TestExporter_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lpc.yaml")

	require.NoError(t, Exporter(path)(flow.Applied{RunID: "run-2", Infos: sampleInfos()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-2")
}

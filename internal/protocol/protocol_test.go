package protocol

import (
	"strings"
	"testing"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisJSON = `{
  "data": {
    "pipettes": [{"id": "p1", "pipetteName": "p300_single_gen2", "mount": "left"}],
    "modules": [{"id": "hs", "model": "heaterShakerModuleV1", "location": {"slotName": "D1"}}],
    "labware": [
      {"id": "tips", "definitionUri": "opentrons/opentrons_96_tiprack_300ul/1", "location": {"slotName": "1"}, "isTiprack": true},
      {"id": "adapter", "definitionUri": "opentrons/opentrons_96_flat_bottom_adapter/1", "location": {"moduleId": "hs"}, "isAdapter": true},
      {"id": "plate", "definitionUri": "opentrons/nest_96_wellplate_100ul/1", "location": {"labwareId": "adapter"}},
      {"id": "stash", "definitionUri": "opentrons/nest_12_reservoir/1", "location": "offDeck"}
    ],
    "commands": [
      {"commandType": "pickUpTip", "params": {"pipetteId": "p1", "labwareId": "tips", "wellName": "A1"}},
      {"commandType": "moveLabware", "params": {"labwareId": "stash", "newLocation": {"slotName": "C2"}}}
    ]
  }
}`

func TestLoadJSON_Envelope(t *testing.T) {
	doc, err := LoadJSON(strings.NewReader(analysisJSON))
	require.NoError(t, err)

	assert.Len(t, doc.Pipettes, 1)
	assert.Len(t, doc.Labware, 4)
	assert.Len(t, doc.Commands, 2)

	stash, ok := doc.LabwareByID("stash")
	require.True(t, ok)
	assert.True(t, stash.Location.OffDeck)
}

func TestLoadJSON_BareDocument(t *testing.T) {
	doc, err := LoadJSON(strings.NewReader(`{"pipettes": [], "labware": [], "modules": [], "commands": []}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Commands)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	doc := &Document{
		Pipettes: []Pipette{{ID: "p1"}, {ID: "p1"}},
		Labware:  []Labware{{ID: "lw", Location: location.LabwareLocation{}}},
		Commands: []Command{
			{CommandType: CommandPickUpTip, Params: Params{PipetteID: "ghost", LabwareID: "lw"}},
			{CommandType: CommandMoveLabware, Params: Params{LabwareID: "lw"}},
		},
	}
	err := doc.Validate()
	require.ErrorIs(t, err, ErrInvalidDocument)
	msg := err.Error()
	assert.Contains(t, msg, `pipette id "p1" already used`)
	assert.Contains(t, msg, `labware "lw" has no definition uri`)
	assert.Contains(t, msg, `unknown pipette "ghost"`)
	assert.Contains(t, msg, "has no new location")
}

func TestDeck_SequenceThroughAdapterAndModule(t *testing.T) {
	doc, err := LoadJSON(strings.NewReader(analysisJSON))
	require.NoError(t, err)
	deck := NewDeck(doc)

	loc, ok := deck.Location("plate")
	require.True(t, ok)

	placement, err := deck.Resolve(loc)
	require.NoError(t, err)
	assert.Equal(t, "D1", placement.SlotName)
	assert.Equal(t, "hs", placement.ModuleID)
	assert.Equal(t, "adapter", placement.AdapterID)
	assert.Equal(t, location.Sequence{
		{Kind: location.OnLabwareKind, LabwareURI: "opentrons/opentrons_96_flat_bottom_adapter/1"},
		{Kind: location.OnModuleKind, ModuleModel: "heaterShakerModuleV1"},
		{Kind: location.OnAddressableArea, AddressableAreaName: "D1"},
	}, placement.Sequence)
}

func TestDeck_ApplyMoveLabware(t *testing.T) {
	doc, err := LoadJSON(strings.NewReader(analysisJSON))
	require.NoError(t, err)
	deck := NewDeck(doc)

	loc, _ := deck.Location("stash")
	_, err = deck.Sequence(loc)
	require.Error(t, err, "off deck labware has no sequence")

	for _, c := range doc.Commands {
		deck.Apply(c)
	}
	loc, _ = deck.Location("stash")
	assert.Equal(t, location.Slot("C2"), loc)
	seq, err := deck.Sequence(loc)
	require.NoError(t, err)
	assert.Equal(t, "C2", seq.SlotName())
}

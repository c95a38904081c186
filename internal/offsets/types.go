package offsets

import (
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// LabwareOffset is an offset record as stored by the datastore.
type LabwareOffset struct {
	ID            string            `json:"id" yaml:"id"`
	DefinitionURI string            `json:"definitionUri" yaml:"definition_uri"`
	Sequence      location.Sequence `json:"locationSequence" yaml:"location_sequence"`
	Vector        vector.Vector3    `json:"vector" yaml:"vector"`
	CreatedAt     time.Time         `json:"createdAt" yaml:"created_at"`
}

// OffsetCreateData is an offset applied to a run.
type OffsetCreateData struct {
	DefinitionURI string            `json:"definitionUri" yaml:"definition_uri"`
	Sequence      location.Sequence `json:"locationSequence" yaml:"location_sequence"`
	Vector        vector.Vector3    `json:"vector" yaml:"vector"`
}

// ExistingOffset is a value the datastore has persisted.
type ExistingOffset struct {
	ID        string         `json:"id" yaml:"id"`
	Vector    vector.Vector3 `json:"vector" yaml:"vector"`
	CreatedAt time.Time      `json:"createdAt" yaml:"created_at"`
}

// WorkingOffset is a value confirmed during the flow but not yet persisted.
// ResetToDefault asks for the location-specific offset to be removed so the
// default applies again; Confirmed is ignored when it is set.
type WorkingOffset struct {
	Confirmed      *vector.Vector3 `json:"confirmed,omitempty" yaml:"confirmed,omitempty"`
	ResetToDefault bool            `json:"resetToDefault,omitempty" yaml:"reset_to_default,omitempty"`
}

// Confirmed builds a working offset holding v.
func Confirmed(v vector.Vector3) *WorkingOffset {
	return &WorkingOffset{Confirmed: v.Ptr()}
}

// ResetToDefault builds the reset sentinel.
func ResetToDefault() *WorkingOffset {
	return &WorkingOffset{ResetToDefault: true}
}

// DefaultOffsetDetails is the offset applied to every placement of a
// definition unless a location-specific offset overrides it.
type DefaultOffsetDetails struct {
	DefinitionURI string          `json:"definitionUri" yaml:"definition_uri"`
	LabwareID     string          `json:"labwareId" yaml:"labware_id"`
	Existing      *ExistingOffset `json:"existing,omitempty" yaml:"existing,omitempty"`
	Working       *WorkingOffset  `json:"working,omitempty" yaml:"working,omitempty"`
}

// LocationSpecificOffsetDetails is the offset for one definition at one
// resolved placement. A non-empty HardCodedOffsetID marks an offset baked
// into the protocol: it is never missing, never edited and never deleted.
type LocationSpecificOffsetDetails struct {
	DefinitionURI     string                   `json:"definitionUri" yaml:"definition_uri"`
	LabwareID         string                   `json:"labwareId" yaml:"labware_id"`
	Location          location.LabwareLocation `json:"location" yaml:"location"`
	Sequence          location.Sequence        `json:"locationSequence" yaml:"location_sequence"`
	SlotName          string                   `json:"slotName" yaml:"slot_name"`
	HardCodedOffsetID string                   `json:"hardCodedOffsetId,omitempty" yaml:"hard_coded_offset_id,omitempty"`
	HardCodedVector   *vector.Vector3          `json:"hardCodedVector,omitempty" yaml:"hard_coded_vector,omitempty"`
	Existing          *ExistingOffset          `json:"existing,omitempty" yaml:"existing,omitempty"`
	Working           *WorkingOffset           `json:"working,omitempty" yaml:"working,omitempty"`
}

// IsHardCoded reports whether the offset comes from the protocol.
func (d LocationSpecificOffsetDetails) IsHardCoded() bool {
	return d.HardCodedOffsetID != ""
}

// LabwareInfo groups the offsets of one labware definition.
type LabwareInfo struct {
	DefinitionURI    string                          `json:"definitionUri" yaml:"definition_uri"`
	DisplayName      string                          `json:"displayName" yaml:"display_name"`
	Default          DefaultOffsetDetails            `json:"default" yaml:"default"`
	LocationSpecific []LocationSpecificOffsetDetails `json:"locationSpecific" yaml:"location_specific"`
}

// WriteKind says whether a pending write creates/updates or deletes.
type WriteKind string

const (
	WriteUpsert WriteKind = "upsert"
	WriteDelete WriteKind = "delete"
)

// Write is one pending datastore operation. Deletes carry ID; upserts are
// keyed by (DefinitionURI, Sequence).
type Write struct {
	Kind          WriteKind         `json:"kind" yaml:"kind"`
	ID            string            `json:"id,omitempty" yaml:"id,omitempty"`
	DefinitionURI string            `json:"definitionUri,omitempty" yaml:"definition_uri,omitempty"`
	Sequence      location.Sequence `json:"locationSequence,omitempty" yaml:"location_sequence,omitempty"`
	Vector        vector.Vector3    `json:"vector" yaml:"vector"`
}

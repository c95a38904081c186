package flow

import (
	"slices"

	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/OpenTrons/opentrons-sub006/internal/workingoffset"
)

// Snapshot is a read-only copy of the flow state for presentation.
type Snapshot struct {
	Mode            Mode                   `json:"mode" yaml:"mode"`
	Index           int                    `json:"index" yaml:"index"`
	Current         steps.Step             `json:"currentStep" yaml:"current_step"`
	Entered         bool                   `json:"entered" yaml:"entered"`
	Steps           []steps.Step           `json:"steps" yaml:"steps"`
	Working         []workingoffset.Record `json:"workingOffsets" yaml:"working_offsets"`
	TipPickUpOffset *vector.Vector3        `json:"tipPickUpOffset,omitempty" yaml:"tip_pick_up_offset,omitempty"`
	IsRobotMoving   bool                   `json:"isRobotMoving" yaml:"is_robot_moving"`
	FatalError      string                 `json:"fatalError,omitempty" yaml:"fatal_error,omitempty"`
	LabwareInfos    []offsets.LabwareInfo  `json:"labware" yaml:"labware"`
	PrimaryPipette  string                 `json:"primaryPipette" yaml:"primary_pipette"`
	IsTwoPipette    bool                   `json:"isTwoPipette" yaml:"is_two_pipette"`
}

// snapshotLocked copies the state. f.mu must be held.
func (f *Flow) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:           f.mode,
		Index:          f.index,
		Current:        f.steps[f.index],
		Entered:        f.entered,
		Steps:          slices.Clone(f.steps),
		Working:        f.working.Records(),
		IsRobotMoving:  f.moving,
		LabwareInfos:   offsets.Clone(f.infos),
		PrimaryPipette: f.primary,
		IsTwoPipette:   f.twoPipette,
	}
	if tip := f.working.TipPickUpOffset(); tip != nil {
		s.TipPickUpOffset = tip.Ptr()
	}
	if f.fatal != nil {
		s.FatalError = f.fatal.Error()
	}
	return s
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// notify hands the current state to the observer. It must be called without
// f.mu held.
func (f *Flow) notify() {
	if f.p.Observer == nil {
		return
	}
	f.p.Observer.Observe(f.Snapshot())
}

package workingoffset

import (
	"errors"
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// ErrMissingInitialPosition is returned when a final position arrives for a
// key that never had an initial position. The record keeps the final position
// but yields no offset vector.
var ErrMissingInitialPosition = errors.New("final position registered before initial position")

// Record is the in-progress offset for one (labware, location) pair.
type Record struct {
	LabwareID       string                   `json:"labwareId" yaml:"labware_id"`
	Location        location.LabwareLocation `json:"location" yaml:"location"`
	InitialPosition *vector.Vector3          `json:"initialPosition" yaml:"initial_position"`
	FinalPosition   *vector.Vector3          `json:"finalPosition" yaml:"final_position"`
}

// OffsetVector returns final - initial when both positions are known.
func (r Record) OffsetVector() (vector.Vector3, bool) {
	if r.InitialPosition == nil || r.FinalPosition == nil {
		return vector.Zero, false
	}
	return r.FinalPosition.Sub(*r.InitialPosition), true
}

// Key builds the identity of a record.
func Key(labwareID string, loc location.LabwareLocation) string {
	return labwareID + "@" + loc.Key()
}

// State is owned by a single flow; it is not safe for concurrent use.
type State struct {
	records map[string]*Record
	order   []string
	tip     *vector.Vector3
	history []Action
}

// New returns an empty accumulator.
func New() *State {
	return &State{records: make(map[string]*Record)}
}

// Dispatch applies an action.
func (s *State) Dispatch(a Action) error {
	s.history = append(s.history, a)

	switch act := a.(type) {
	case InitialPosition:
		if err := act.Position.Validate(); err != nil {
			return fmt.Errorf("initial position: %w", err)
		}
		r := s.upsert(act.LabwareID, act.Location)
		if vector.Equal(r.InitialPosition, &act.Position) {
			return nil
		}
		r.InitialPosition = act.Position.Ptr()
		r.FinalPosition = nil
		return nil

	case FinalPosition:
		if err := act.Position.Validate(); err != nil {
			return fmt.Errorf("final position: %w", err)
		}
		r := s.upsert(act.LabwareID, act.Location)
		r.FinalPosition = act.Position.Ptr()
		if r.InitialPosition == nil {
			return fmt.Errorf("%w: labware %s at %s", ErrMissingInitialPosition, act.LabwareID, act.Location)
		}
		return nil

	case TipPickUpOffset:
		if act.Offset == nil {
			s.tip = nil
			return nil
		}
		if err := act.Offset.Validate(); err != nil {
			return fmt.Errorf("tip pick-up offset: %w", err)
		}
		s.tip = act.Offset.Ptr()
		return nil
	}
	return fmt.Errorf("unknown working offset action %T", a)
}

func (s *State) upsert(labwareID string, loc location.LabwareLocation) *Record {
	key := Key(labwareID, loc)
	r, ok := s.records[key]
	if !ok {
		r = &Record{LabwareID: labwareID, Location: loc}
		s.records[key] = r
		s.order = append(s.order, key)
	}
	return r
}

// Get returns a copy of the record for a key.
func (s *State) Get(labwareID string, loc location.LabwareLocation) (Record, bool) {
	r, ok := s.records[Key(labwareID, loc)]
	if !ok {
		return Record{}, false
	}
	return copyRecord(r), true
}

// OffsetVector is shorthand for Get followed by Record.OffsetVector.
func (s *State) OffsetVector(labwareID string, loc location.LabwareLocation) (vector.Vector3, bool) {
	r, ok := s.Get(labwareID, loc)
	if !ok {
		return vector.Zero, false
	}
	return r.OffsetVector()
}

// TipPickUpOffset returns the offset of the tip currently held, if any.
func (s *State) TipPickUpOffset() *vector.Vector3 {
	if s.tip == nil {
		return nil
	}
	return s.tip.Ptr()
}

// Records returns copies of every record in creation order.
func (s *State) Records() []Record {
	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, copyRecord(s.records[key]))
	}
	return out
}

// History returns every action dispatched so far.
func (s *State) History() []Action {
	out := make([]Action, len(s.history))
	copy(out, s.history)
	return out
}

func copyRecord(r *Record) Record {
	c := *r
	if r.InitialPosition != nil {
		c.InitialPosition = r.InitialPosition.Ptr()
	}
	if r.FinalPosition != nil {
		c.FinalPosition = r.FinalPosition.Ptr()
	}
	return c
}

package offsets

import (
	"errors"
	"fmt"
)

var (
	// ErrConsistency is matched by every ConsistencyError.
	ErrConsistency = errors.New("offset consistency error")
	// ErrHardcodedOffset is returned when something tries to edit an offset
	// baked into the protocol.
	ErrHardcodedOffset = errors.New("hardcoded offsets cannot be edited")
	// ErrResetDefault is returned when a default offset is asked to reset to
	// itself.
	ErrResetDefault = errors.New("a default offset cannot be reset to default")
	// ErrUnknownLocation is returned when a location is not part of a LabwareInfo.
	ErrUnknownLocation = errors.New("location is not checked for this labware")
)

// ConsistencyError means a placement has neither its own offset nor a
// default to fall back on, so the run would execute uncalibrated.
type ConsistencyError struct {
	DefinitionURI string
	SlotName      string
	SequenceKey   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("no offset for %s in slot %s (%s) and no default offset to fall back on", e.DefinitionURI, e.SlotName, e.SequenceKey)
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

package steps

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTipPickup means the protocol never picks up a tip, so there is
	// nothing to calibrate with.
	ErrNoTipPickup = errors.New("labware position check requires at least one pickUpTip command")
	// ErrMalformedProtocol covers analysis data the sequencer cannot walk.
	ErrMalformedProtocol = errors.New("malformed protocol data")
)

// SequencingError is returned when no step list can be derived. The flow
// never starts after one.
type SequencingError struct {
	Reason string
	Err    error
}

func (e *SequencingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("sequencing failed: %v", e.Err)
	}
	return fmt.Sprintf("sequencing failed: %s: %v", e.Reason, e.Err)
}

func (e *SequencingError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &SequencingError{Reason: fmt.Sprintf(format, args...), Err: ErrMalformedProtocol}
}

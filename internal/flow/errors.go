package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrRobotMoving is returned when a call would start a command chain
	// while another is still outstanding.
	ErrRobotMoving = errors.New("robot is moving")
	// ErrClosed is returned by every call after the flow has exited.
	ErrClosed = errors.New("position check has exited")
	// ErrNotAvailable is returned when a call does not apply to the
	// current mode or step.
	ErrNotAvailable = errors.New("not available in the current state")
	// ErrInvalidJog rejects a jog with a bad direction or distance.
	ErrInvalidJog = errors.New("invalid jog")
	// ErrNoOffsetToSave rejects saving a placement as the default when it
	// has neither a stored nor a confirmed offset.
	ErrNoOffsetToSave = errors.New("no offset to save as default")
)

// CleanupFailure is a failure of the best-effort exit chain. It is logged
// and reported on the Outcome; it never keeps the flow open.
type CleanupFailure struct {
	Stage string
	Err   error
}

func (e *CleanupFailure) Error() string {
	return fmt.Sprintf("cleanup %s: %v", e.Stage, e.Err)
}

func (e *CleanupFailure) Unwrap() error {
	return e.Err
}

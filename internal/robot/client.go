package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
)

// Client is the robot the position check drives.
type Client interface {
	// Execute issues one command and blocks until the robot reports it
	// finished. A command the robot reports as failed is returned as a
	// *CommandError.
	Execute(ctx context.Context, cmd Command) (CommandResult, error)
	// CreateOffset applies an offset to the run.
	CreateOffset(ctx context.Context, data offsets.OffsetCreateData) (offsets.LabwareOffset, error)
	// StopRun ends the run the position check was attached to.
	StopRun(ctx context.Context, runID string) error
}

// ErrCommandFailed is matched by every *CommandError.
var ErrCommandFailed = errors.New("robot command failed")

// CommandError is a failure the robot reported for a command, or a command
// that had not finished when the robot answered. Err carries the underlying
// cause when there is one.
type CommandError struct {
	CommandType string
	ErrorType   string
	Detail      string
	Err         error
}

func (e *CommandError) Error() string {
	if e.ErrorType == "" {
		return fmt.Sprintf("%s failed: %s", e.CommandType, e.Detail)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.CommandType, e.ErrorType, e.Detail)
}

func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

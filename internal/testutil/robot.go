package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
)

// WellTop is where the fake robot places the pipette for moveToWell with a
// zero offset.
var WellTop = vector.Vector3{X: 100, Y: 50, Z: 20}

// FakeRobot is an in-memory robot.Client. It records every call, simulates
// the pipette position so savePosition reports what jogging produced, and
// can be told to fail or block specific commands.
type FakeRobot struct {
	mu       sync.Mutex
	commands []robot.Command
	created  []offsets.OffsetCreateData
	stopped  []string
	position vector.Vector3

	failType map[string]error
	failAt   map[int]error
	stopErr  error

	gate    chan struct{}
	entered chan robot.Command
}

var _ robot.Client = (*FakeRobot)(nil)

// NewFakeRobot creates a fake robot that succeeds at everything.
func NewFakeRobot() *FakeRobot {
	return &FakeRobot{
		failType: make(map[string]error),
		failAt:   make(map[int]error),
	}
}

// FailCommand makes every command of the given type fail with err.
func (f *FakeRobot) FailCommand(commandType string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failType[commandType] = err
}

// FailAt makes the n-th executed command (zero based) fail with err.
func (f *FakeRobot) FailAt(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt[n] = err
}

// FailStop makes StopRun fail with err.
func (f *FakeRobot) FailStop(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopErr = err
}

// Block holds every subsequent Execute until the returned release function
// is called. Each blocked command is announced on Entered.
func (f *FakeRobot) Block() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan robot.Command, 64)
	gate := f.gate
	var once sync.Once
	return func() {
		once.Do(func() {
			close(gate)
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
		})
	}
}

// Entered returns the channel blocked commands are announced on.
func (f *FakeRobot) Entered() <-chan robot.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entered
}

// Execute implements robot.Client.
func (f *FakeRobot) Execute(ctx context.Context, cmd robot.Command) (robot.CommandResult, error) {
	f.mu.Lock()
	idx := len(f.commands)
	f.commands = append(f.commands, cmd)
	gate, entered := f.gate, f.entered
	err := f.failAt[idx]
	if err == nil {
		err = f.failType[cmd.CommandType]
	}
	f.mu.Unlock()

	if gate != nil {
		entered <- cmd
		select {
		case <-gate:
		case <-ctx.Done():
			return robot.CommandResult{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return robot.CommandResult{}, err
	}

	res := robot.CommandResult{ID: fmt.Sprintf("cmd-%d", idx), CommandType: cmd.CommandType, Status: robot.StatusSucceeded}
	if err != nil {
		res.Status = robot.StatusFailed
		return res, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch p := cmd.Params.(type) {
	case robot.MoveToWellParams:
		f.position = WellTop.Add(p.WellLocation.Offset)
	case robot.MoveRelativeParams:
		switch p.Axis {
		case robot.AxisX:
			f.position.X += p.Distance
		case robot.AxisY:
			f.position.Y += p.Distance
		case robot.AxisZ:
			f.position.Z += p.Distance
		}
	case robot.SavePositionParams:
		res.Position = f.position.Ptr()
	}
	return res, nil
}

// CreateOffset implements robot.Client.
func (f *FakeRobot) CreateOffset(ctx context.Context, data offsets.OffsetCreateData) (offsets.LabwareOffset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, data)
	return offsets.LabwareOffset{
		ID:            fmt.Sprintf("offset-%d", len(f.created)),
		DefinitionURI: data.DefinitionURI,
		Sequence:      data.Sequence,
		Vector:        data.Vector,
		CreatedAt:     time.Now(),
	}, nil
}

// StopRun implements robot.Client.
func (f *FakeRobot) StopRun(ctx context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, runID)
	return f.stopErr
}

// Commands returns a copy of every command executed so far.
func (f *FakeRobot) Commands() []robot.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]robot.Command(nil), f.commands...)
}

// CommandTypes returns the types of every command executed so far.
func (f *FakeRobot) CommandTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.commands))
	for i, c := range f.commands {
		types[i] = c.CommandType
	}
	return types
}

// Reset forgets recorded commands.
func (f *FakeRobot) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

// Created returns the offsets applied to the run.
func (f *FakeRobot) Created() []offsets.OffsetCreateData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]offsets.OffsetCreateData(nil), f.created...)
}

// Stopped returns the run IDs StopRun was called with.
func (f *FakeRobot) Stopped() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stopped...)
}

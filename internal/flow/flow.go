package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/OpenTrons/opentrons-sub006/internal/chain"
	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
	"github.com/OpenTrons/opentrons-sub006/internal/workingoffset"
)

// Flow is one labware position check session.
type Flow struct {
	p Params

	// motion serialises command chains.
	motion sync.Mutex

	// mu guards everything below.
	mu         sync.Mutex
	steps      []steps.Step
	index      int
	mode       Mode
	entered    bool
	moving     bool
	working    *workingoffset.State
	infos      []offsets.LabwareInfo
	primary    string
	twoPipette bool
	// tipFrom is the index of the PickUpTip step whose tip is held, or -1.
	tipFrom int
	fatal   error

	closeOnce sync.Once
}

// Begin builds the steps and offset details for a protocol and returns a
// flow positioned at BeforeBeginning. No command is issued. A protocol that
// cannot be sequenced returns a *steps.SequencingError.
func Begin(ctx context.Context, p Params) (*Flow, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("begin position check: %w", err)
	}
	stepList, err := steps.Build(p.Document)
	if err != nil {
		return nil, err
	}
	primary, err := steps.PrimaryPipette(p.Document)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		p:          p,
		steps:      stepList,
		working:    workingoffset.New(),
		infos:      offsets.BuildLabwareInfo(p.Document, stepList, p.ExistingOffsets),
		primary:    primary,
		twoPipette: steps.IsTwoPipette(p.Document),
		tipFrom:    -1,
		entered:    true,
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("position check started",
		slog.String("run_id", p.RunID),
		slog.Int("steps", len(stepList)),
		slog.String("primary_pipette", primary),
	)
	for _, info := range f.infos {
		if offsets.IsNecessaryDefaultOffsetMissing(info) {
			logger.Debug("default offset missing", slog.String("definition_uri", info.DefinitionURI))
		}
		for _, c := range offsets.Conflicts(info) {
			logger.Warn("offset conflict", slog.String("definition_uri", info.DefinitionURI), slog.String("location", c.SequenceKey), slog.String("reason", c.Reason))
		}
	}
	f.notify()
	return f, nil
}

// Steps returns the step list.
func (f *Flow) Steps() []steps.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]steps.Step(nil), f.steps...)
}

// History returns every working-offset action dispatched so far.
func (f *Flow) History() []workingoffset.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.working.History()
}

func (f *Flow) stepCtx(ctx context.Context, s steps.Step) context.Context {
	args := []any{slog.String("step", s.Kind.String())}
	if s.LabwareID != "" {
		args = append(args, slog.String("labware_id", s.LabwareID), slog.String("slot", s.SlotName))
	}
	return ctxlog.With(ctx, args...)
}

// run executes one chain with the robot marked as moving. A failure moves
// the flow into ModeFatalError unless tolerate is set.
func (f *Flow) run(ctx context.Context, cmds []robot.Command, tolerate bool) ([]robot.CommandResult, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	f.setMoving(true)
	defer f.setMoving(false)

	opts := []chain.Option{chain.WithMiddleware(f.p.Middleware...)}
	if tolerate {
		opts = append(opts, chain.ContinuePastFailure())
	}
	results, err := chain.Run(ctx, cmds, f.p.Client.Execute, opts...)
	if err != nil && !tolerate {
		f.fail(ctx, err)
	}
	return results, err
}

func (f *Flow) setMoving(moving bool) {
	f.mu.Lock()
	f.moving = moving
	f.mu.Unlock()
	f.notify()
}

func (f *Flow) fail(ctx context.Context, err error) {
	ctxlog.FromContext(ctx).Error("command failure, position check halted", slog.String("error", err.Error()))
	f.mu.Lock()
	f.mode = ModeFatalError
	f.fatal = err
	f.mu.Unlock()
	f.notify()
}

// begin claims the motion lock for a call that needs the flow in ModeStep.
// The returned function releases it.
func (f *Flow) begin() (release func(), err error) {
	if !f.motion.TryLock() {
		return nil, ErrRobotMoving
	}
	f.mu.Lock()
	mode := f.mode
	f.mu.Unlock()
	switch mode {
	case ModeStep:
		return f.motion.Unlock, nil
	case ModeClosed:
		f.motion.Unlock()
		return nil, ErrClosed
	default:
		f.motion.Unlock()
		return nil, fmt.Errorf("%w: flow is in %s", ErrNotAvailable, mode)
	}
}

func (f *Flow) current() (int, steps.Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index, f.steps[f.index]
}

func (f *Flow) pipette(id string) protocol.Pipette {
	if p, ok := f.p.Document.Pipette(id); ok {
		return *p
	}
	return protocol.Pipette{ID: id}
}

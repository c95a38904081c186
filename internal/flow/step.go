package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/OpenTrons/opentrons-sub006/internal/workingoffset"
)

// checkWell is the well every labware is checked against.
const checkWell = "A1"

// positionDecimals trims floating point noise from confirmed vectors.
const positionDecimals = 6

var errNoPosition = errors.New("savePosition reported no position")

func needsEntry(s steps.Step) bool {
	return s.Kind == steps.CheckItem || s.Kind == steps.PickUpTip
}

// baseVectorLocked is the offset the pipette is moved with when a step is
// entered. f.mu must be held.
func (f *Flow) baseVectorLocked(s steps.Step) vector.Vector3 {
	info, ok := offsets.Find(f.infos, s.DefinitionURI)
	if !ok {
		return vector.Zero
	}
	v, _ := offsets.EffectiveVector(*info, s.Sequence)
	return v
}

// modulePrep readies the module under a labware so the pipette can reach it.
func (f *Flow) modulePrep(s steps.Step) []robot.Command {
	if s.ModuleID == "" {
		return nil
	}
	m, ok := f.p.Document.ModuleByID(s.ModuleID)
	if !ok {
		return nil
	}
	switch {
	case m.Model == protocol.HeaterShakerModel:
		return []robot.Command{robot.CloseLabwareLatch(m.ID)}
	case protocol.IsThermocycler(m.Model):
		return []robot.Command{robot.OpenLid(m.ID)}
	}
	return nil
}

// enter moves the flow to step idx. Steps that check a labware move the
// pipette to the check well and register the initial position.
func (f *Flow) enter(ctx context.Context, idx int) error {
	f.mu.Lock()
	f.index = idx
	s := f.steps[idx]
	f.entered = !needsEntry(s)
	base := f.baseVectorLocked(s)
	f.mu.Unlock()
	f.notify()

	ctx = f.stepCtx(ctx, s)
	logger := ctxlog.FromContext(ctx)
	if !needsEntry(s) {
		logger.Debug("step entered")
		return nil
	}

	cmds := append(f.modulePrep(s),
		robot.MoveToWell(s.PipetteID, s.LabwareID, checkWell, base),
		robot.SavePosition(s.PipetteID),
	)
	results, err := f.run(ctx, cmds, false)
	if err != nil {
		return err
	}
	pos := results[len(results)-1].Position
	if pos == nil {
		f.fail(ctx, errNoPosition)
		return errNoPosition
	}

	f.mu.Lock()
	err = f.working.Dispatch(workingoffset.InitialPosition{LabwareID: s.LabwareID, Location: s.Location, Position: *pos})
	f.entered = err == nil
	f.mu.Unlock()
	f.notify()
	if err != nil {
		return fmt.Errorf("register initial position: %w", err)
	}
	logger.Debug("step entered", slog.String("initial_position", pos.String()))
	return nil
}

// confirmPosition records where the user left the pipette and stores the
// resulting offset as the working value of the step's placement.
func (f *Flow) confirmPosition(ctx context.Context, s steps.Step) (vector.Vector3, error) {
	results, err := f.run(ctx, []robot.Command{robot.SavePosition(s.PipetteID)}, false)
	if err != nil {
		return vector.Zero, err
	}
	pos := results[0].Position
	if pos == nil {
		f.fail(ctx, errNoPosition)
		return vector.Zero, errNoPosition
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.working.Dispatch(workingoffset.FinalPosition{LabwareID: s.LabwareID, Location: s.Location, Position: *pos}); err != nil {
		return vector.Zero, fmt.Errorf("register final position: %w", err)
	}
	delta, ok := f.working.OffsetVector(s.LabwareID, s.Location)
	if !ok {
		return vector.Zero, fmt.Errorf("no offset vector for %s", s)
	}
	confirmed := f.baseVectorLocked(s).Add(delta).Round(positionDecimals)

	info, ok := offsets.Find(f.infos, s.DefinitionURI)
	if !ok {
		return vector.Zero, fmt.Errorf("%s: %w", s.DefinitionURI, offsets.ErrUnknownLocation)
	}
	err = info.SetLocationWorking(s.Sequence, offsets.Confirmed(confirmed))
	switch {
	case errors.Is(err, offsets.ErrHardcodedOffset):
		ctxlog.FromContext(ctx).Info("offset is fixed by the protocol and is not saved", slog.String("vector", confirmed.String()))
	case err != nil:
		return vector.Zero, err
	default:
		ctxlog.FromContext(ctx).Info("offset confirmed", slog.String("vector", confirmed.String()))
	}
	return confirmed, nil
}

// confirm runs the chain that completes the current step.
func (f *Flow) confirm(ctx context.Context, idx int, s steps.Step) error {
	mount := f.pipette(s.PipetteID).Mount
	switch s.Kind {
	case steps.BeforeBeginning:
		_, err := f.run(ctx, []robot.Command{robot.Home()}, false)
		return err

	case steps.CheckItem:
		if _, err := f.confirmPosition(ctx, s); err != nil {
			return err
		}
		_, err := f.run(ctx, []robot.Command{robot.RetractAxis(mount)}, false)
		return err

	case steps.PickUpTip:
		confirmed, err := f.confirmPosition(ctx, s)
		if err != nil {
			return err
		}
		if _, err := f.run(ctx, []robot.Command{
			robot.PickUpTip(s.PipetteID, s.LabwareID, checkWell, confirmed),
			robot.RetractAxis(mount),
		}, false); err != nil {
			return err
		}
		f.mu.Lock()
		err = f.working.Dispatch(workingoffset.TipPickUpOffset{Offset: confirmed.Ptr()})
		f.tipFrom = idx
		f.mu.Unlock()
		return err

	case steps.ReturnTip:
		return f.returnTip(ctx)
	}
	return nil
}

// returnTip puts the held tip back where it was picked up.
func (f *Flow) returnTip(ctx context.Context) error {
	f.mu.Lock()
	from := f.tipFrom
	tip := f.working.TipPickUpOffset()
	f.mu.Unlock()
	if from < 0 {
		return nil
	}
	rack := f.steps[from]
	offset := vector.Zero
	if tip != nil {
		offset = *tip
	}
	if _, err := f.run(ctx, []robot.Command{
		robot.MoveToWell(rack.PipetteID, rack.LabwareID, checkWell, offset),
		robot.DropTip(rack.PipetteID, rack.LabwareID, checkWell, offset),
		robot.RetractAxis(f.pipette(rack.PipetteID).Mount),
	}, false); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tipFrom = -1
	return f.working.Dispatch(workingoffset.TipPickUpOffset{})
}

package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/OpenTrons/opentrons-sub006/internal/workingoffset"
)

// Proceed completes the current step and enters the next one. On the
// results summary it persists and applies the offsets, then exits.
func (f *Flow) Proceed(ctx context.Context) error {
	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	idx, s := f.current()
	f.mu.Lock()
	entered := f.entered
	f.mu.Unlock()
	if !entered {
		return f.enter(ctx, idx)
	}

	if s.Kind == steps.ResultsSummary {
		return f.apply(ctx)
	}
	if err := f.confirm(f.stepCtx(ctx, s), idx, s); err != nil {
		return err
	}
	return f.enter(ctx, idx+1)
}

// GoBack re-enters the previous step. A tip picked up at or after that step
// is returned first.
func (f *Flow) GoBack(ctx context.Context) error {
	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	idx, s := f.current()
	if idx == 0 {
		return nil
	}
	target := idx - 1

	f.mu.Lock()
	holding := f.tipFrom >= 0 && target <= f.tipFrom
	f.mu.Unlock()

	if needsEntry(s) {
		if _, err := f.run(ctx, []robot.Command{robot.RetractAxis(f.pipette(s.PipetteID).Mount)}, false); err != nil {
			return err
		}
	}
	if holding {
		if err := f.returnTip(ctx); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Debug("going back", slog.Int("from", idx), slog.Int("to", target))
	return f.enter(ctx, target)
}

// Jog moves the pipette direction*distance millimetres along one axis.
func (f *Flow) Jog(ctx context.Context, axis robot.Axis, direction int, distance float64) error {
	if _, err := robot.ParseAxis(string(axis)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJog, err)
	}
	if direction != 1 && direction != -1 {
		return fmt.Errorf("%w: direction must be 1 or -1, got %d", ErrInvalidJog, direction)
	}
	if distance <= 0 || math.IsInf(distance, 0) || math.IsNaN(distance) {
		return fmt.Errorf("%w: distance must be a positive number of millimetres", ErrInvalidJog)
	}

	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	_, s := f.current()
	f.mu.Lock()
	entered := f.entered
	f.mu.Unlock()
	if !needsEntry(s) || !entered {
		return fmt.Errorf("%w: cannot jog during %s", ErrNotAvailable, s.Kind)
	}

	ctx = f.stepCtx(ctx, s)
	_, err = f.run(ctx, []robot.Command{
		robot.MoveRelative(s.PipetteID, axis, float64(direction)*distance, f.p.JogTimeout),
	}, false)
	return err
}

// ConfirmExit shows the exit confirmation without changing the step.
func (f *Flow) ConfirmExit() error {
	if err := f.switchMode(ModeStep, ModeConfirmExit); err != nil {
		return err
	}
	f.notify()
	return nil
}

// CancelExit hides the exit confirmation.
func (f *Flow) CancelExit() error {
	if err := f.switchMode(ModeConfirmExit, ModeStep); err != nil {
		return err
	}
	f.notify()
	return nil
}

func (f *Flow) switchMode(from, to Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.mode {
	case from:
		f.mode = to
		return nil
	case ModeClosed:
		return ErrClosed
	}
	return fmt.Errorf("%w: flow is in %s", ErrNotAvailable, f.mode)
}

// Exit leaves the flow. It waits for an outstanding chain, then drops any
// held tip, homes and stops the run. Cleanup failures are logged and
// reported to OnClose; the flow closes regardless.
func (f *Flow) Exit(ctx context.Context) error {
	f.motion.Lock()
	defer f.motion.Unlock()

	f.mu.Lock()
	if f.mode == ModeClosed {
		f.mu.Unlock()
		return nil
	}
	out := Outcome{Reason: ReasonCancelled, Fatal: f.fatal}
	if f.fatal != nil {
		out.Reason = ReasonFatal
	}
	f.mode = ModeExiting
	f.mu.Unlock()
	f.notify()

	f.shutdown(ctx, out)
	return nil
}

// DismissFatalError acknowledges a command failure and exits.
func (f *Flow) DismissFatalError(ctx context.Context) error {
	f.motion.Lock()
	defer f.motion.Unlock()

	if err := f.switchMode(ModeFatalError, ModeExiting); err != nil {
		return err
	}
	f.notify()

	f.mu.Lock()
	out := Outcome{Reason: ReasonFatal, Fatal: f.fatal}
	f.mu.Unlock()
	f.shutdown(ctx, out)
	return nil
}

// ResetToDefault drops the location-specific offset of a placement so the
// default offset applies there once the results are accepted.
func (f *Flow) ResetToDefault(definitionURI, slot string) error {
	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	f.mu.Lock()
	info, ok := offsets.Find(f.infos, definitionURI)
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%s: %w", definitionURI, offsets.ErrUnknownLocation)
	}
	var seq location.Sequence
	for _, d := range info.LocationSpecific {
		if d.SlotName == slot {
			seq = d.Sequence
			break
		}
	}
	if seq == nil {
		f.mu.Unlock()
		return fmt.Errorf("%s in slot %s: %w", definitionURI, slot, offsets.ErrUnknownLocation)
	}
	err = info.SetLocationWorking(seq, offsets.ResetToDefault())
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify()
	return nil
}

// SaveAsDefault makes the offset currently resolved for a placement the
// default offset of its labware definition once the results are accepted.
func (f *Flow) SaveAsDefault(definitionURI, slot string) error {
	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	f.mu.Lock()
	info, ok := offsets.Find(f.infos, definitionURI)
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%s: %w", definitionURI, offsets.ErrUnknownLocation)
	}
	var v *vector.Vector3
	found := false
	for _, d := range info.LocationSpecific {
		if d.SlotName != slot {
			continue
		}
		found = true
		if d.IsHardCoded() {
			f.mu.Unlock()
			return fmt.Errorf("%s in slot %s: %w", definitionURI, slot, offsets.ErrHardcodedOffset)
		}
		v = offsets.MostRecentVector(d.Existing, d.Working)
		break
	}
	if !found {
		f.mu.Unlock()
		return fmt.Errorf("%s in slot %s: %w", definitionURI, slot, offsets.ErrUnknownLocation)
	}
	if v == nil {
		f.mu.Unlock()
		return fmt.Errorf("%s in slot %s: %w", definitionURI, slot, ErrNoOffsetToSave)
	}
	err = info.SetDefaultWorking(offsets.Confirmed(*v))
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify()
	return nil
}

// apply persists the working offsets, applies the resolved offsets to the
// run and exits. Resolution problems are returned before anything is
// written and leave the flow on the results summary.
func (f *Flow) apply(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	f.mu.Lock()
	infos := offsets.Clone(f.infos)
	f.mu.Unlock()

	writes, err := offsets.PendingWrites(infos)
	if err != nil {
		return fmt.Errorf("apply offsets: %w", err)
	}
	committed := offsets.Preview(infos, writes)
	if _, err := offsets.ResolveOffsetsToApply(committed); err != nil {
		return err
	}

	var stored []offsets.LabwareOffset
	if f.p.Writer != nil {
		if stored, err = f.p.Writer.Apply(ctx, writes); err != nil {
			return fmt.Errorf("persist offsets: %w", err)
		}
		committed = offsets.Commit(infos, stored)
	}
	data, err := offsets.ResolveOffsetsToApply(committed)
	if err != nil {
		return err
	}
	for _, d := range data {
		if _, err := f.p.Client.CreateOffset(ctx, d); err != nil {
			return fmt.Errorf("apply offset for %s in slot %s: %w", d.DefinitionURI, d.Sequence.SlotName(), err)
		}
	}
	logger.Info("offsets applied", slog.Int("writes", len(writes)), slog.Int("applied", len(data)))

	f.mu.Lock()
	f.infos = committed
	f.mode = ModeExiting
	f.mu.Unlock()
	f.notify()

	if f.p.OnApply != nil {
		applied := Applied{
			Writes:  writes,
			Stored:  stored,
			Run:     data,
			Infos:   offsets.Clone(infos),
			RunID:   f.p.RunID,
			Applied: time.Now().UTC(),
		}
		if err := f.p.OnApply(ctx, applied); err != nil {
			logger.Warn("apply callback failed", slog.String("error", err.Error()))
		}
	}

	f.shutdown(ctx, Outcome{Reason: ReasonApplied})
	return nil
}

// shutdown runs the cleanup chain and closes the flow. The caller holds the
// motion lock.
func (f *Flow) shutdown(ctx context.Context, out Outcome) {
	ctx = context.WithoutCancel(ctx)
	logger := ctxlog.FromContext(ctx)

	f.mu.Lock()
	from := f.tipFrom
	f.mu.Unlock()

	var cmds []robot.Command
	if from >= 0 {
		pipetteID := f.steps[from].PipetteID
		cmds = append(cmds, robot.MoveToTrash(pipetteID, f.p.TrashArea), robot.DropTipInPlace(pipetteID))
	}
	cmds = append(cmds, robot.Home())

	var failures []error
	if _, err := f.run(ctx, cmds, true); err != nil {
		failures = append(failures, &CleanupFailure{Stage: "home", Err: err})
	}
	if err := f.p.Client.StopRun(ctx, f.p.RunID); err != nil {
		failures = append(failures, &CleanupFailure{Stage: "stop run", Err: err})
	}
	for _, err := range failures {
		logger.Warn("cleanup failed", slog.String("error", err.Error()))
	}
	out.Cleanup = errors.Join(failures...)

	f.mu.Lock()
	f.mode = ModeClosed
	if f.tipFrom >= 0 {
		f.tipFrom = -1
		if err := f.working.Dispatch(workingoffset.TipPickUpOffset{}); err != nil {
			logger.Warn("failed to clear tip pick-up offset", slog.String("error", err.Error()))
		}
	}
	f.mu.Unlock()
	f.notify()

	logger.Info("position check closed", slog.String("reason", string(out.Reason)))
	f.closeOnce.Do(func() {
		if f.p.OnClose != nil {
			f.p.OnClose(out)
		}
	})
}

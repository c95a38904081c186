package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol/protocoltest"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"github.com/OpenTrons/opentrons-sub006/internal/steps"
	"github.com/OpenTrons/opentrons-sub006/internal/testutil"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	flow     *Flow
	robot    *testutil.FakeRobot
	mu       sync.Mutex
	outcomes []Outcome
	applied  []Applied
}

func (h *harness) closed() []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Outcome(nil), h.outcomes...)
}

func start(t *testing.T, doc *protocol.Document, mutate ...func(*Params)) *harness {
	t.Helper()
	h := &harness{robot: testutil.NewFakeRobot()}
	p := Params{
		Document: doc,
		Client:   h.robot,
		RunID:    "run-1",
		OnClose: func(o Outcome) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.outcomes = append(h.outcomes, o)
		},
		OnApply: func(_ context.Context, a Applied) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.applied = append(h.applied, a)
			return nil
		},
	}
	for _, m := range mutate {
		m(&p)
	}
	f, err := Begin(context.Background(), p)
	require.NoError(t, err)
	h.flow = f
	return h
}

func proceed(t *testing.T, h *harness, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.NoError(t, h.flow.Proceed(context.Background()))
	}
}

func moveToWellOffsets(cmds []robot.Command) []vector.Vector3 {
	var out []vector.Vector3
	for _, c := range cmds {
		if p, ok := c.Params.(robot.MoveToWellParams); ok {
			out = append(out, p.WellLocation.Offset)
		}
	}
	return out
}

func TestBegin_NoTipPickupNeverStarts(t *testing.T) {
	doc := protocoltest.New().Pipette("p1", "left").Plate("plate", "3").Aspirate("p1", "plate").Build()
	fake := testutil.NewFakeRobot()

	f, err := Begin(context.Background(), Params{Document: doc, Client: fake})

	assert.Nil(t, f)
	assert.ErrorIs(t, err, steps.ErrNoTipPickup)
	var seqErr *steps.SequencingError
	assert.ErrorAs(t, err, &seqErr)
	assert.Empty(t, fake.Commands())
}

func TestBegin_RequiresClient(t *testing.T) {
	_, err := Begin(context.Background(), Params{Document: protocoltest.SinglePipette()})
	assert.Error(t, err)
}

func TestBegin_InitialSnapshot(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())

	s := h.flow.Snapshot()
	assert.Equal(t, ModeStep, s.Mode)
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, steps.BeforeBeginning, s.Current.Kind)
	assert.Len(t, s.Steps, 5)
	assert.Equal(t, "p1", s.PrimaryPipette)
	assert.False(t, s.IsTwoPipette)
	assert.False(t, s.IsRobotMoving)
	assert.Empty(t, h.robot.Commands(), "beginning issues no command")
}

func TestFlow_FullWalkAppliesOffsets(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	ctx := context.Background()

	proceed(t, h, 1)
	assert.Equal(t, steps.CheckItem, h.flow.Snapshot().Current.Kind)

	require.NoError(t, h.flow.Jog(ctx, robot.AxisX, 1, 0.1))
	require.NoError(t, h.flow.Jog(ctx, robot.AxisZ, -1, 0.5))
	proceed(t, h, 1)

	s := h.flow.Snapshot()
	assert.Equal(t, steps.PickUpTip, s.Current.Kind)
	plate, ok := offsets.Find(s.LabwareInfos, protocoltest.PlateURI)
	require.True(t, ok)
	require.NotNil(t, plate.LocationSpecific[0].Working)
	assert.Equal(t, vector.Vector3{X: 0.1, Z: -0.5}, *plate.LocationSpecific[0].Working.Confirmed)

	proceed(t, h, 1)
	s = h.flow.Snapshot()
	assert.Equal(t, steps.ReturnTip, s.Current.Kind)
	require.NotNil(t, s.TipPickUpOffset)

	proceed(t, h, 1)
	s = h.flow.Snapshot()
	assert.Equal(t, steps.ResultsSummary, s.Current.Kind)
	assert.Nil(t, s.TipPickUpOffset)

	proceed(t, h, 1)

	assert.Equal(t, []string{
		robot.TypeHome,
		robot.TypeMoveToWell, robot.TypeSavePosition,
		robot.TypeMoveRelative, robot.TypeMoveRelative,
		robot.TypeSavePosition, robot.TypeRetractAxis,
		robot.TypeMoveToWell, robot.TypeSavePosition,
		robot.TypeSavePosition, robot.TypePickUpTip, robot.TypeRetractAxis,
		robot.TypeMoveToWell, robot.TypeDropTip, robot.TypeRetractAxis,
		robot.TypeHome,
	}, h.robot.CommandTypes())

	created := h.robot.Created()
	require.Len(t, created, 2)
	assert.Equal(t, protocoltest.PlateURI, created[0].DefinitionURI)
	assert.Equal(t, vector.Vector3{X: 0.1, Z: -0.5}, created[0].Vector)
	assert.Equal(t, protocoltest.TiprackURI, created[1].DefinitionURI)
	assert.Equal(t, []string{"run-1"}, h.robot.Stopped())

	require.Len(t, h.applied, 1)
	assert.Len(t, h.applied[0].Writes, 2)
	appliedPlate, ok := offsets.Find(h.applied[0].Infos, protocoltest.PlateURI)
	require.True(t, ok)
	require.NotNil(t, appliedPlate.LocationSpecific[0].Working, "applied infos keep what this session changed")
	outcomes := h.closed()
	require.Len(t, outcomes, 1)
	assert.Equal(t, ReasonApplied, outcomes[0].Reason)
	assert.NoError(t, outcomes[0].Cleanup)
	assert.Equal(t, ModeClosed, h.flow.Snapshot().Mode)

	assert.ErrorIs(t, h.flow.Proceed(ctx), ErrClosed)
}

func TestJog_IssuesSingleMoveRelative(t *testing.T) {
	h := start(t, protocoltest.SinglePipette(), func(p *Params) { p.JogTimeout = 3 * time.Second })
	proceed(t, h, 1)
	h.robot.Reset()

	require.NoError(t, h.flow.Jog(context.Background(), robot.AxisX, 1, 2))

	cmds := h.robot.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, robot.TypeMoveRelative, cmds[0].CommandType)
	assert.Equal(t, robot.MoveRelativeParams{PipetteID: "p1", Axis: robot.AxisX, Distance: 2}, cmds[0].Params)
	assert.Equal(t, 3*time.Second, cmds[0].Timeout)
}

func TestJog_Rejections(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	ctx := context.Background()

	assert.ErrorIs(t, h.flow.Jog(ctx, robot.AxisX, 1, 1), ErrNotAvailable, "nothing to jog before beginning")

	proceed(t, h, 1)
	assert.ErrorIs(t, h.flow.Jog(ctx, robot.AxisX, 2, 1), ErrInvalidJog)
	assert.ErrorIs(t, h.flow.Jog(ctx, robot.AxisX, 1, 0), ErrInvalidJog)
	assert.ErrorIs(t, h.flow.Jog(ctx, robot.Axis("w"), 1, 1), ErrInvalidJog)
}

func TestCommandFailure_EntersFatalError(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	stall := errors.New("stalled")
	h.robot.FailCommand(robot.TypeMoveToWell, stall)

	err := h.flow.Proceed(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, stall)

	s := h.flow.Snapshot()
	assert.Equal(t, ModeFatalError, s.Mode)
	assert.Contains(t, s.FatalError, "stalled")
	assert.Equal(t, []string{robot.TypeHome, robot.TypeMoveToWell}, h.robot.CommandTypes(), "savePosition is never issued")

	assert.ErrorIs(t, h.flow.Proceed(context.Background()), ErrNotAvailable)
	assert.ErrorIs(t, h.flow.CancelExit(), ErrNotAvailable)

	require.NoError(t, h.flow.DismissFatalError(context.Background()))
	assert.Equal(t, robot.TypeHome, h.robot.CommandTypes()[2])
	assert.Equal(t, []string{"run-1"}, h.robot.Stopped())

	outcomes := h.closed()
	require.Len(t, outcomes, 1)
	assert.Equal(t, ReasonFatal, outcomes[0].Reason)
	assert.ErrorIs(t, outcomes[0].Fatal, stall)
}

func TestConfirmExit_KeepsIndex(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	proceed(t, h, 1)

	require.NoError(t, h.flow.ConfirmExit())
	s := h.flow.Snapshot()
	assert.Equal(t, ModeConfirmExit, s.Mode)
	assert.Equal(t, 1, s.Index)
	assert.ErrorIs(t, h.flow.Proceed(context.Background()), ErrNotAvailable)

	require.NoError(t, h.flow.CancelExit())
	s = h.flow.Snapshot()
	assert.Equal(t, ModeStep, s.Mode)
	assert.Equal(t, 1, s.Index)
}

func TestExit_DropsHeldTipHomesAndStops(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	proceed(t, h, 3)
	require.Equal(t, steps.ReturnTip, h.flow.Snapshot().Current.Kind)
	require.NotNil(t, h.flow.Snapshot().TipPickUpOffset)
	h.robot.Reset()

	require.NoError(t, h.flow.ConfirmExit())
	require.NoError(t, h.flow.Exit(context.Background()))

	assert.Equal(t, []string{
		robot.TypeMoveToAddressableAreaForDropTip,
		robot.TypeDropTipInPlace,
		robot.TypeHome,
	}, h.robot.CommandTypes())
	assert.Equal(t, []string{"run-1"}, h.robot.Stopped())
	outcomes := h.closed()
	require.Len(t, outcomes, 1)
	assert.Equal(t, ReasonCancelled, outcomes[0].Reason)

	s := h.flow.Snapshot()
	assert.Equal(t, ModeClosed, s.Mode)
	assert.Nil(t, s.TipPickUpOffset, "dropped tip is no longer held")
}

func TestExit_CleanupFailureStillCloses(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	h.robot.FailCommand(robot.TypeHome, errors.New("home failed"))
	h.robot.FailStop(errors.New("stop failed"))

	require.NoError(t, h.flow.Exit(context.Background()))
	require.NoError(t, h.flow.Exit(context.Background()), "exiting twice is a no-op")

	assert.Equal(t, ModeClosed, h.flow.Snapshot().Mode)
	outcomes := h.closed()
	require.Len(t, outcomes, 1, "OnClose runs exactly once")
	var cf *CleanupFailure
	require.ErrorAs(t, outcomes[0].Cleanup, &cf)
	assert.Contains(t, outcomes[0].Cleanup.Error(), "stop failed")
}

func TestRobotMoving_GuardsAndQueuesExit(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	release := h.robot.Block()
	ctx := context.Background()

	proceedDone := make(chan error, 1)
	go func() { proceedDone <- h.flow.Proceed(ctx) }()
	<-h.robot.Entered()

	assert.True(t, h.flow.Snapshot().IsRobotMoving)
	assert.ErrorIs(t, h.flow.Proceed(ctx), ErrRobotMoving)
	assert.ErrorIs(t, h.flow.Jog(ctx, robot.AxisX, 1, 1), ErrRobotMoving)
	assert.ErrorIs(t, h.flow.GoBack(ctx), ErrRobotMoving)

	exitDone := make(chan error, 1)
	go func() { exitDone <- h.flow.Exit(ctx) }()
	select {
	case <-exitDone:
		t.Fatal("exit must wait for the outstanding chain")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, h.robot.Stopped())

	release()
	require.NoError(t, <-proceedDone)
	require.NoError(t, <-exitDone)
	assert.Equal(t, ModeClosed, h.flow.Snapshot().Mode)
	assert.Equal(t, []string{"run-1"}, h.robot.Stopped())
}

func TestGoBack_ReentersWithConfirmedOffset(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	ctx := context.Background()
	proceed(t, h, 1)
	require.NoError(t, h.flow.Jog(ctx, robot.AxisY, 1, 0.25))
	proceed(t, h, 1)
	h.robot.Reset()

	require.NoError(t, h.flow.GoBack(ctx))

	s := h.flow.Snapshot()
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, []string{robot.TypeRetractAxis, robot.TypeMoveToWell, robot.TypeSavePosition}, h.robot.CommandTypes())
	assert.Equal(t, []vector.Vector3{{Y: 0.25}}, moveToWellOffsets(h.robot.Commands()))

	proceed(t, h, 1)
	plate, _ := offsets.Find(h.flow.Snapshot().LabwareInfos, protocoltest.PlateURI)
	assert.Equal(t, vector.Vector3{Y: 0.25}, *plate.LocationSpecific[0].Working.Confirmed, "re-confirming without jogging keeps the offset")
}

func TestGoBack_ReturnsHeldTip(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	proceed(t, h, 3)
	require.NotNil(t, h.flow.Snapshot().TipPickUpOffset)
	h.robot.Reset()

	require.NoError(t, h.flow.GoBack(context.Background()))

	s := h.flow.Snapshot()
	assert.Equal(t, steps.PickUpTip, s.Current.Kind)
	assert.Nil(t, s.TipPickUpOffset)
	assert.Equal(t, []string{
		robot.TypeMoveToWell, robot.TypeDropTip, robot.TypeRetractAxis,
		robot.TypeMoveToWell, robot.TypeSavePosition,
	}, h.robot.CommandTypes())
}

func TestGoBack_AtStartIsNoop(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	require.NoError(t, h.flow.GoBack(context.Background()))
	assert.Equal(t, 0, h.flow.Snapshot().Index)
	assert.Empty(t, h.robot.Commands())
}

func TestApply_ConsistencyErrorKeepsFlowOpen(t *testing.T) {
	h := start(t, protocoltest.SinglePipette())
	proceed(t, h, 4)
	require.NoError(t, h.flow.ResetToDefault(protocoltest.PlateURI, "3"))
	h.robot.Reset()

	err := h.flow.Proceed(context.Background())

	assert.ErrorIs(t, err, offsets.ErrConsistency)
	s := h.flow.Snapshot()
	assert.Equal(t, ModeStep, s.Mode)
	assert.Equal(t, steps.ResultsSummary, s.Current.Kind)
	assert.Empty(t, h.robot.Created(), "nothing is applied")
	assert.Empty(t, h.closed())
}

func TestApply_ResetFallsBackToDefault(t *testing.T) {
	existing := []offsets.LabwareOffset{
		{ID: "def", DefinitionURI: protocoltest.PlateURI, Sequence: location.AnyLocation(), Vector: vector.Vector3{Z: 1}},
		{ID: "own", DefinitionURI: protocoltest.PlateURI, Sequence: location.Sequence{{Kind: location.OnAddressableArea, AddressableAreaName: "3"}}, Vector: vector.Vector3{X: 2}},
	}
	writer := &recordingWriter{}
	h := start(t, protocoltest.SinglePipette(), func(p *Params) {
		p.ExistingOffsets = existing
		p.Writer = writer
	})
	proceed(t, h, 4)
	require.NoError(t, h.flow.ResetToDefault(protocoltest.PlateURI, "3"))

	require.NoError(t, h.flow.Proceed(context.Background()))

	require.Len(t, writer.writes, 2)
	assert.Equal(t, offsets.Write{Kind: offsets.WriteDelete, ID: "own"}, writer.writes[0])
	created := h.robot.Created()
	require.Len(t, created, 2)
	assert.Equal(t, vector.Vector3{Z: 1}, created[0].Vector)
}

func TestSaveAsDefault_PersistsConfirmedVector(t *testing.T) {
	writer := &recordingWriter{}
	h := start(t, protocoltest.SinglePipette(), func(p *Params) { p.Writer = writer })
	ctx := context.Background()

	assert.ErrorIs(t, h.flow.SaveAsDefault(protocoltest.PlateURI, "3"), ErrNoOffsetToSave)
	assert.ErrorIs(t, h.flow.SaveAsDefault(protocoltest.PlateURI, "9"), offsets.ErrUnknownLocation)
	assert.ErrorIs(t, h.flow.SaveAsDefault("opentrons/missing/1", "3"), offsets.ErrUnknownLocation)

	proceed(t, h, 1)
	require.NoError(t, h.flow.Jog(ctx, robot.AxisX, 1, 0.1))
	proceed(t, h, 3)
	require.Equal(t, steps.ResultsSummary, h.flow.Snapshot().Current.Kind)

	require.NoError(t, h.flow.SaveAsDefault(protocoltest.PlateURI, "3"))
	plate, ok := offsets.Find(h.flow.Snapshot().LabwareInfos, protocoltest.PlateURI)
	require.True(t, ok)
	require.NotNil(t, plate.Default.Working)

	require.NoError(t, h.flow.Proceed(ctx))

	require.NotEmpty(t, writer.writes)
	assert.Equal(t, offsets.Write{
		Kind:          offsets.WriteUpsert,
		DefinitionURI: protocoltest.PlateURI,
		Sequence:      location.AnyLocation(),
		Vector:        vector.Vector3{X: 0.1},
	}, writer.writes[0])
}

func TestModulePreparation(t *testing.T) {
	doc := protocoltest.New().
		Pipette("p1", "right").
		Tiprack("tips", "1").
		Module("hs", protocol.HeaterShakerModel, "D1").
		Labware("plate", protocoltest.PlateURI, location.OnModule("hs")).
		PickUpTip("p1", "tips").
		Aspirate("p1", "plate").
		Build()
	h := start(t, doc)

	proceed(t, h, 1)

	assert.Equal(t, []string{robot.TypeHome, robot.TypeCloseLabwareLatch, robot.TypeMoveToWell, robot.TypeSavePosition}, h.robot.CommandTypes())
	proceed(t, h, 1)
	assert.Equal(t, robot.RetractAxisParams{Axis: "rightZ"}, h.robot.Commands()[5].Params)
}

type recordingWriter struct {
	writes []offsets.Write
}

func (w *recordingWriter) Apply(_ context.Context, writes []offsets.Write) ([]offsets.LabwareOffset, error) {
	w.writes = append(w.writes, writes...)
	var out []offsets.LabwareOffset
	for i, wr := range writes {
		if wr.Kind == offsets.WriteUpsert {
			out = append(out, offsets.LabwareOffset{
				ID:            "stored-" + string(rune('a'+i)),
				DefinitionURI: wr.DefinitionURI,
				Sequence:      wr.Sequence,
				Vector:        wr.Vector,
			})
		}
	}
	return out, nil
}

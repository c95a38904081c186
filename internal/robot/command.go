package robot

import (
	"fmt"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/google/uuid"
)

// Command types issued by the position check.
const (
	TypeHome                            = "home"
	TypeMoveToWell                      = "moveToWell"
	TypeSavePosition                    = "savePosition"
	TypeMoveRelative                    = "moveRelative"
	TypePickUpTip                       = "pickUpTip"
	TypeDropTip                         = "dropTip"
	TypeDropTipInPlace                  = "dropTipInPlace"
	TypeMoveToAddressableAreaForDropTip = "moveToAddressableAreaForDropTip"
	TypeRetractAxis                     = "retractAxis"
	TypeCloseLabwareLatch               = "heaterShaker/closeLabwareLatch"
	TypeOpenLid                         = "thermocycler/openLid"
)

// IntentSetup marks commands issued outside the protocol's own command list.
const IntentSetup = "setup"

// Command is a single robot command.
type Command struct {
	CommandType string        `json:"commandType"`
	Params      any           `json:"params"`
	Intent      string        `json:"intent,omitempty"`
	Key         string        `json:"key,omitempty"`
	Timeout     time.Duration `json:"-"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%+v)", c.CommandType, c.Params)
}

// CommandResult is what the robot reports for a completed command.
type CommandResult struct {
	ID          string          `json:"id"`
	CommandType string          `json:"commandType"`
	Status      string          `json:"status"`
	Position    *vector.Vector3 `json:"position,omitempty"`
}

// Command statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Axis is a jog axis.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ParseAxis validates an axis name.
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(s); a {
	case AxisX, AxisY, AxisZ:
		return a, nil
	}
	return "", fmt.Errorf("unknown jog axis %q", s)
}

// WellOrigin values.
const OriginTop = "top"

// WellLocation places the pipette relative to a well.
type WellLocation struct {
	Origin string         `json:"origin"`
	Offset vector.Vector3 `json:"offset"`
}

// MoveToWellParams is the payload of moveToWell.
type MoveToWellParams struct {
	PipetteID    string       `json:"pipetteId"`
	LabwareID    string       `json:"labwareId"`
	WellName     string       `json:"wellName"`
	WellLocation WellLocation `json:"wellLocation"`
}

// SavePositionParams is the payload of savePosition.
type SavePositionParams struct {
	PipetteID string `json:"pipetteId"`
}

// MoveRelativeParams is the payload of moveRelative.
type MoveRelativeParams struct {
	PipetteID string  `json:"pipetteId"`
	Axis      Axis    `json:"axis"`
	Distance  float64 `json:"distance"`
}

// TipParams is the payload of pickUpTip and dropTip.
type TipParams struct {
	PipetteID    string       `json:"pipetteId"`
	LabwareID    string       `json:"labwareId"`
	WellName     string       `json:"wellName"`
	WellLocation WellLocation `json:"wellLocation"`
}

// PipetteParams is the payload of commands that only name a pipette.
type PipetteParams struct {
	PipetteID string `json:"pipetteId"`
}

// DropTipAreaParams is the payload of moveToAddressableAreaForDropTip.
type DropTipAreaParams struct {
	PipetteID             string         `json:"pipetteId"`
	AddressableAreaName   string         `json:"addressableAreaName"`
	Offset                vector.Vector3 `json:"offset"`
	AlternateDropLocation bool           `json:"alternateDropLocation"`
}

// HomeParams is the payload of home. No axes homes everything.
type HomeParams struct {
	Axes []string `json:"axes,omitempty"`
}

// RetractAxisParams is the payload of retractAxis.
type RetractAxisParams struct {
	Axis string `json:"axis"`
}

// ModuleParams is the payload of module commands.
type ModuleParams struct {
	ModuleID string `json:"moduleId"`
}

func newCommand(commandType string, params any) Command {
	return Command{CommandType: commandType, Params: params, Intent: IntentSetup, Key: uuid.NewString()}
}

// Home homes every axis.
func Home() Command {
	return newCommand(TypeHome, HomeParams{})
}

// MoveToWell moves to the top of a well with an offset applied.
func MoveToWell(pipetteID, labwareID, well string, offset vector.Vector3) Command {
	return newCommand(TypeMoveToWell, MoveToWellParams{
		PipetteID:    pipetteID,
		LabwareID:    labwareID,
		WellName:     well,
		WellLocation: WellLocation{Origin: OriginTop, Offset: offset},
	})
}

// SavePosition asks the robot for the pipette's current position.
func SavePosition(pipetteID string) Command {
	return newCommand(TypeSavePosition, SavePositionParams{PipetteID: pipetteID})
}

// MoveRelative jogs along one axis. The timeout bounds how long the jog may
// take before it is treated as failed.
func MoveRelative(pipetteID string, axis Axis, distance float64, timeout time.Duration) Command {
	c := newCommand(TypeMoveRelative, MoveRelativeParams{PipetteID: pipetteID, Axis: axis, Distance: distance})
	c.Timeout = timeout
	return c
}

// PickUpTip picks up a tip from a tiprack well with an offset applied.
func PickUpTip(pipetteID, labwareID, well string, offset vector.Vector3) Command {
	return newCommand(TypePickUpTip, TipParams{
		PipetteID:    pipetteID,
		LabwareID:    labwareID,
		WellName:     well,
		WellLocation: WellLocation{Origin: OriginTop, Offset: offset},
	})
}

// DropTip returns a tip to a tiprack well with an offset applied.
func DropTip(pipetteID, labwareID, well string, offset vector.Vector3) Command {
	return newCommand(TypeDropTip, TipParams{
		PipetteID:    pipetteID,
		LabwareID:    labwareID,
		WellName:     well,
		WellLocation: WellLocation{Origin: OriginTop, Offset: offset},
	})
}

// MoveToTrash moves over the trash before a tip is dropped in place.
func MoveToTrash(pipetteID, area string) Command {
	return newCommand(TypeMoveToAddressableAreaForDropTip, DropTipAreaParams{
		PipetteID:             pipetteID,
		AddressableAreaName:   area,
		AlternateDropLocation: true,
	})
}

// DropTipInPlace drops whatever tip is held where the pipette is.
func DropTipInPlace(pipetteID string) Command {
	return newCommand(TypeDropTipInPlace, PipetteParams{PipetteID: pipetteID})
}

// RetractAxis raises the Z axis of a mount.
func RetractAxis(mount string) Command {
	return newCommand(TypeRetractAxis, RetractAxisParams{Axis: ZAxisFor(mount)})
}

// CloseLabwareLatch closes a heater-shaker latch.
func CloseLabwareLatch(moduleID string) Command {
	return newCommand(TypeCloseLabwareLatch, ModuleParams{ModuleID: moduleID})
}

// OpenLid opens a thermocycler lid.
func OpenLid(moduleID string) Command {
	return newCommand(TypeOpenLid, ModuleParams{ModuleID: moduleID})
}

// ZAxisFor names the Z axis of a pipette mount.
func ZAxisFor(mount string) string {
	if mount == "right" {
		return "rightZ"
	}
	return "leftZ"
}

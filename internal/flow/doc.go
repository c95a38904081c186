// Package flow is the labware position check state machine.
//
// A Flow walks the calibration steps built from a protocol, drives the robot
// through each one with the chain executor, accumulates the positions the
// user confirms and, when the results are accepted, persists and applies the
// resolved offsets. Exiting, by request or after a fatal command failure,
// always attempts to drop any held tip, home and stop the run.
//
// All state lives on the Flow value. Only one command chain is outstanding at
// a time: Proceed, GoBack and Jog fail with ErrRobotMoving while one runs, and
// Exit waits for it to settle.
package flow

// Package robot defines the commands the position check issues, the client
// interface it issues them through, and an HTTP implementation of that client
// for the robot server.
//
// The engine treats the client as an opaque asynchronous boundary: every
// call blocks until the robot reports completion or the context ends.
package robot

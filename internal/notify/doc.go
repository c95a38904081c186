// Package notify delivers flow snapshots to the presentation layer: the
// latest snapshot is kept for polling, and a socket.io publisher pushes each
// one to connected clients.
package notify

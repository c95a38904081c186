// Package app wires a position check session together: it loads the
// protocol, opens the offset store, connects to the robot and the optional
// notify channel, and drives the flow from the operator console until the
// flow closes. It is decoupled from any specific entrypoint like a CLI.
package app

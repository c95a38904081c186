// Package protocol holds the read-only view of a protocol analysis document
// that the position check needs: which pipettes, labware and modules are
// loaded, and the ordered command list that uses them.
//
// The document is produced by an external analysis service. This package
// only models and validates it; it never interprets protocol source files.
package protocol

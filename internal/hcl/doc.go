// Package hcl provides the HCL implementations of configuration loading.
//
// Two kinds of files are understood:
//
//   - application config files (robot, flow, store, notify and log blocks)
//     loaded through Loader, which implements config.Loader;
//   - protocol fixture files (pipette, module, labware, command and
//     hardcoded_offset blocks) loaded through LoadProtocol into a
//     protocol.Document.
//
// Both loaders accept a list of paths. Directories are walked for .hcl
// files, and blocks a loader does not understand are left in the remaining
// body so the two kinds of files may share a directory.
package hcl

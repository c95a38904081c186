// Package config defines the format-agnostic application configuration and
// the Loader interface implemented by concrete file formats.
//
// A Config is built in layers: Default values, then any configuration files
// handed to a Loader, then command-line overrides applied by the cli package.
// Validate is called once all layers are in place.
package config

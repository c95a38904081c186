package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every configuration file found under paths and overlays
	// the values it finds onto base. Fields a file does not mention keep
	// their value from base.
	Load(ctx context.Context, base *Config, paths ...string) (*Config, error)
}

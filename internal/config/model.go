package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Offset store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds every setting of one position check session.
type Config struct {
	// ProtocolPath points at an analysis document (.json) or an HCL fixture
	// (.hcl file or directory).
	ProtocolPath string

	Robot  Robot
	Flow   Flow
	Store  Store
	Notify Notify

	HealthcheckPort int
	LogLevel        string
	LogFormat       string

	// ExportPath receives the YAML results summary after offsets are applied.
	// Empty disables the export.
	ExportPath string
}

// Robot configures the robot HTTP API client.
type Robot struct {
	URL            string
	RunID          string
	RequestTimeout time.Duration
}

// Flow configures the position check itself.
type Flow struct {
	JogTimeout time.Duration
	JogStep    float64
	TrashArea  string
}

// Store selects where existing offsets are read from and written to.
type Store struct {
	Driver string
	Path   string
}

// Notify configures the socket.io snapshot publisher. An empty URL disables it.
type Notify struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Robot: Robot{
			URL:            "http://localhost:31950",
			RequestTimeout: 30 * time.Second,
		},
		Flow: Flow{
			JogTimeout: 10 * time.Second,
			JogStep:    0.1,
			TrashArea:  "fixedTrash",
		},
		Store: Store{
			Driver: DriverMemory,
		},
		Notify: Notify{
			Namespace:      "/",
			Event:          "lpc:state",
			ConnectTimeout: 5 * time.Second,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.ProtocolPath == "" {
		errs = append(errs, errors.New("protocol path is required"))
	}
	if c.Robot.RunID == "" {
		errs = append(errs, errors.New("robot run id is required"))
	}
	if u, err := url.Parse(c.Robot.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("robot url %q is not an absolute url", c.Robot.URL))
	}
	if c.Robot.RequestTimeout <= 0 {
		errs = append(errs, errors.New("robot request timeout must be positive"))
	}
	if c.Flow.JogTimeout <= 0 {
		errs = append(errs, errors.New("jog timeout must be positive"))
	}
	if c.Flow.JogStep <= 0 {
		errs = append(errs, errors.New("jog step must be positive"))
	}
	if c.Flow.TrashArea == "" {
		errs = append(errs, errors.New("trash area is required"))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("sqlite store requires a path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.HealthcheckPort < 0 || c.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("healthcheck port %d out of range", c.HealthcheckPort))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}

	return errors.Join(errs...)
}

package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/OpenTrons/opentrons-sub006/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// overrides copies the value of one flag from the parsed flag values onto
// the layered config. Only flags set on the command line are copied.
var overrides = map[string]func(dst, src *config.Config){
	"protocol":         func(d, s *config.Config) { d.ProtocolPath = s.ProtocolPath },
	"p":                func(d, s *config.Config) { d.ProtocolPath = s.ProtocolPath },
	"robot-url":        func(d, s *config.Config) { d.Robot.URL = s.Robot.URL },
	"run-id":           func(d, s *config.Config) { d.Robot.RunID = s.Robot.RunID },
	"request-timeout":  func(d, s *config.Config) { d.Robot.RequestTimeout = s.Robot.RequestTimeout },
	"jog-timeout":      func(d, s *config.Config) { d.Flow.JogTimeout = s.Flow.JogTimeout },
	"jog-step":         func(d, s *config.Config) { d.Flow.JogStep = s.Flow.JogStep },
	"trash-area":       func(d, s *config.Config) { d.Flow.TrashArea = s.Flow.TrashArea },
	"store":            func(d, s *config.Config) { d.Store.Driver = s.Store.Driver },
	"store-path":       func(d, s *config.Config) { d.Store.Path = s.Store.Path },
	"notify-url":       func(d, s *config.Config) { d.Notify.URL = s.Notify.URL },
	"notify-namespace": func(d, s *config.Config) { d.Notify.Namespace = s.Notify.Namespace },
	"notify-insecure":  func(d, s *config.Config) { d.Notify.InsecureSkipVerify = s.Notify.InsecureSkipVerify },
	"healthcheck-port": func(d, s *config.Config) { d.HealthcheckPort = s.HealthcheckPort },
	"log-level":        func(d, s *config.Config) { d.LogLevel = strings.ToLower(s.LogLevel) },
	"log-format":       func(d, s *config.Config) { d.LogFormat = strings.ToLower(s.LogFormat) },
	"export":           func(d, s *config.Config) { d.ExportPath = s.ExportPath },
}

// Parse processes command-line arguments. It returns a validated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
// Settings are layered as defaults, then the --config file, then flags.
func Parse(args []string, output io.Writer, loader config.Loader) (*config.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("lpc", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
lpc - Labware Position Check for a protocol run.

Usage:
  lpc [options] [PROTOCOL_PATH]

Arguments:
  PROTOCOL_PATH
    Analysis document (.json), or a .hcl fixture file or directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	fv := config.Default()
	configPath := flagSet.String("config", "", "Path to an .hcl config file or directory.")
	flagSet.StringVar(&fv.ProtocolPath, "protocol", "", "Path to the protocol analysis or fixture.")
	flagSet.StringVar(&fv.ProtocolPath, "p", "", "Path to the protocol analysis or fixture (shorthand).")
	flagSet.StringVar(&fv.Robot.URL, "robot-url", fv.Robot.URL, "Base URL of the robot HTTP API.")
	flagSet.StringVar(&fv.Robot.RunID, "run-id", "", "Id of the run to check labware for.")
	flagSet.DurationVar(&fv.Robot.RequestTimeout, "request-timeout", fv.Robot.RequestTimeout, "Timeout of a single robot request.")
	flagSet.DurationVar(&fv.Flow.JogTimeout, "jog-timeout", fv.Flow.JogTimeout, "Timeout of a single jog.")
	flagSet.Float64Var(&fv.Flow.JogStep, "jog-step", fv.Flow.JogStep, "Default jog distance in millimetres.")
	flagSet.StringVar(&fv.Flow.TrashArea, "trash-area", fv.Flow.TrashArea, "Addressable area a held tip is dropped into on exit.")
	flagSet.StringVar(&fv.Store.Driver, "store", fv.Store.Driver, "Offset store driver. Options: 'memory' or 'sqlite'.")
	flagSet.StringVar(&fv.Store.Path, "store-path", "", "Path of the sqlite offset store.")
	flagSet.StringVar(&fv.Notify.URL, "notify-url", "", "socket.io server that receives state snapshots. Empty is disabled.")
	flagSet.StringVar(&fv.Notify.Namespace, "notify-namespace", fv.Notify.Namespace, "socket.io namespace for state snapshots.")
	flagSet.BoolVar(&fv.Notify.InsecureSkipVerify, "notify-insecure", false, "Skip TLS verification of the notify server.")
	flagSet.IntVar(&fv.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	flagSet.StringVar(&fv.LogLevel, "log-level", fv.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.StringVar(&fv.LogFormat, "log-format", fv.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&fv.ExportPath, "export", "", "Write the results summary as YAML to this path.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one protocol path, got %d", flagSet.NArg())}
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := loader.Load(context.Background(), cfg, *configPath)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("failed to load config: %v", err)}
		}
		cfg = loaded
	}

	flagSet.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(cfg, fv)
		}
	})
	if flagSet.NArg() == 1 {
		cfg.ProtocolPath = flagSet.Arg(0)
	}

	if cfg.ProtocolPath == "" && *configPath == "" {
		slog.Debug("No protocol path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "protocol", cfg.ProtocolPath, "run_id", cfg.Robot.RunID)
	return cfg, false, nil
}

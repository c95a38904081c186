package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/config"
	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// fileRoot decodes the application config blocks of one file. Every field
// is optional so a file only overrides what it mentions.
type fileRoot struct {
	Protocol        *string      `hcl:"protocol,optional"`
	HealthcheckPort *int         `hcl:"healthcheck_port,optional"`
	ExportPath      *string      `hcl:"export_path,optional"`
	Robot           *robotBlock  `hcl:"robot,block"`
	Flow            *flowBlock   `hcl:"flow,block"`
	Store           *storeBlock  `hcl:"store,block"`
	Notify          *notifyBlock `hcl:"notify,block"`
	Log             *logBlock    `hcl:"log,block"`
	Remain          hcl.Body     `hcl:",remain"`
}

type robotBlock struct {
	URL            *string `hcl:"url,optional"`
	RunID          *string `hcl:"run_id,optional"`
	RequestTimeout *string `hcl:"request_timeout,optional"`
}

type flowBlock struct {
	JogTimeout *string  `hcl:"jog_timeout,optional"`
	JogStep    *float64 `hcl:"jog_step,optional"`
	TrashArea  *string  `hcl:"trash_area,optional"`
}

type storeBlock struct {
	Driver *string `hcl:"driver,optional"`
	Path   *string `hcl:"path,optional"`
}

type notifyBlock struct {
	URL                *string `hcl:"url,optional"`
	Namespace          *string `hcl:"namespace,optional"`
	Event              *string `hcl:"event,optional"`
	InsecureSkipVerify *bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     *string `hcl:"connect_timeout,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Load overlays every config file found under paths onto a copy of base.
// Later files win. A relative protocol path is resolved against the
// directory of the file that names it.
func (l *Loader) Load(ctx context.Context, base *config.Config, paths ...string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL config loader started.", "path_count", len(paths))

	cfg := *base
	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := overlay(&cfg, &root, filepath.Dir(file)); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	logger.Debug("HCL config loading complete.", "files", len(files))
	return &cfg, nil
}

func overlay(cfg *config.Config, root *fileRoot, dir string) error {
	if root.Protocol != nil {
		p := *root.Protocol
		if p != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		cfg.ProtocolPath = p
	}
	setInt(&cfg.HealthcheckPort, root.HealthcheckPort)
	setString(&cfg.ExportPath, root.ExportPath)

	if r := root.Robot; r != nil {
		setString(&cfg.Robot.URL, r.URL)
		setString(&cfg.Robot.RunID, r.RunID)
		if err := setDuration(&cfg.Robot.RequestTimeout, r.RequestTimeout, "robot.request_timeout"); err != nil {
			return err
		}
	}

	if fl := root.Flow; fl != nil {
		if err := setDuration(&cfg.Flow.JogTimeout, fl.JogTimeout, "flow.jog_timeout"); err != nil {
			return err
		}
		if fl.JogStep != nil {
			cfg.Flow.JogStep = *fl.JogStep
		}
		setString(&cfg.Flow.TrashArea, fl.TrashArea)
	}

	if s := root.Store; s != nil {
		setString(&cfg.Store.Driver, s.Driver)
		setString(&cfg.Store.Path, s.Path)
	}

	if n := root.Notify; n != nil {
		setString(&cfg.Notify.URL, n.URL)
		setString(&cfg.Notify.Namespace, n.Namespace)
		setString(&cfg.Notify.Event, n.Event)
		if n.InsecureSkipVerify != nil {
			cfg.Notify.InsecureSkipVerify = *n.InsecureSkipVerify
		}
		if err := setDuration(&cfg.Notify.ConnectTimeout, n.ConnectTimeout, "notify.connect_timeout"); err != nil {
			return err
		}
	}

	if lg := root.Log; lg != nil {
		setString(&cfg.LogLevel, lg.Level)
		setString(&cfg.LogFormat, lg.Format)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

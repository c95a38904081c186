package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OpenTrons/opentrons-sub006/internal/console"
	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/flow"
	"github.com/OpenTrons/opentrons-sub006/internal/notify"
	"github.com/OpenTrons/opentrons-sub006/internal/offsetstore"
	"github.com/OpenTrons/opentrons-sub006/internal/report"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// ErrFatal wraps the robot error that ended a session.
var ErrFatal = errors.New("position check ended on a robot error")

// Run executes one position check session. It returns once the flow has
// closed. Applied and cancelled sessions return nil.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg := a.config
	logger := a.logger.With("run_id", cfg.Robot.RunID)
	logger.Debug("App.Run method started.")

	doc, err := loadProtocol(ctx, cfg.ProtocolPath)
	if err != nil {
		return fmt.Errorf("failed to load protocol: %w", err)
	}
	logger.Info("Protocol loaded.", "path", cfg.ProtocolPath, "labware", len(doc.Labware), "pipettes", len(doc.Pipettes))

	store := a.store
	if store == nil {
		store, err = offsetstore.Open(ctx, cfg.Store.Driver, cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open offset store: %w", err)
		}
		defer store.Close()
	}
	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing offsets: %w", err)
	}
	logger.Debug("Existing offsets loaded.", "count", len(existing), "driver", cfg.Store.Driver)

	client := a.client
	if client == nil {
		httpClient := robot.NewHTTPClient(cfg.Robot.URL, cfg.Robot.RunID, cfg.Robot.RequestTimeout)
		defer httpClient.Close()
		client = httpClient
	}

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	observers := notify.Fanout{a.latest}
	if cfg.Notify.URL != "" {
		pub, err := notify.Connect(ctx, notify.SocketOptions{
			URL:                cfg.Notify.URL,
			Namespace:          cfg.Notify.Namespace,
			Event:              cfg.Notify.Event,
			InsecureSkipVerify: cfg.Notify.InsecureSkipVerify,
			ConnectTimeout:     cfg.Notify.ConnectTimeout,
		})
		if err != nil {
			logger.Warn("Notify channel unavailable, continuing without it.", "error", err)
		} else {
			defer pub.Close()
			observers = append(observers, pub)
		}
	}

	closed := make(chan struct{})
	var (
		mu      sync.Mutex
		outcome flow.Outcome
	)
	params := flow.Params{
		Document:        doc,
		ExistingOffsets: existing,
		Client:          client,
		RunID:           cfg.Robot.RunID,
		JogTimeout:      cfg.Flow.JogTimeout,
		TrashArea:       cfg.Flow.TrashArea,
		Middleware:      a.middleware,
		Writer:          store,
		Observer:        observers,
		OnApply:         a.onApply,
		OnClose: func(o flow.Outcome) {
			mu.Lock()
			outcome = o
			mu.Unlock()
			close(closed)
		},
	}

	f, err := flow.Begin(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to begin position check: %w", err)
	}
	logger.Debug("Flow begun, handing over to the console.", "steps", len(f.Steps()))

	con := console.New(f, a.in, a.outW, console.Options{
		JogStep: cfg.Flow.JogStep,
		Prompt:  console.Interactive(a.in),
	})
	if err := con.Run(ctx, closed); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Console stopped.", "error", err)
	}

	<-closed
	mu.Lock()
	out := outcome
	mu.Unlock()

	if out.Cleanup != nil {
		logger.Warn("Robot cleanup did not complete.", "error", out.Cleanup)
	}
	logger.Info("🏁 Position check finished.", "reason", out.Reason, "history", len(f.History()))

	if out.Reason == flow.ReasonFatal {
		return fmt.Errorf("%w: %w", ErrFatal, out.Fatal)
	}
	return nil
}

// onApply exports the results summary when an export path is configured.
func (a *App) onApply(ctx context.Context, applied flow.Applied) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Offsets applied.", "written", len(applied.Writes), "run_offsets", len(applied.Run))
	if a.config.ExportPath == "" {
		return nil
	}
	if err := report.Exporter(a.config.ExportPath)(applied); err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}
	logger.Info("Results exported.", "path", a.config.ExportPath)
	return nil
}

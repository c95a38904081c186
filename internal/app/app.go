package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/OpenTrons/opentrons-sub006/internal/chain"
	"github.com/OpenTrons/opentrons-sub006/internal/config"
	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/notify"
	"github.com/OpenTrons/opentrons-sub006/internal/offsetstore"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// App encapsulates the session's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *config.Config
	latest     *notify.Latest
	httpServer *http.Server

	in         io.Reader
	client     robot.Client
	store      offsetstore.Store
	middleware []chain.Middleware
}

// Option overrides a collaborator App would otherwise build from config.
type Option func(*App)

// WithRobotClient replaces the HTTP robot client.
func WithRobotClient(c robot.Client) Option {
	return func(a *App) { a.client = c }
}

// WithStore replaces the configured offset store. The App does not close it.
func WithStore(s offsetstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithInput sets where operator commands are read from. Defaults to stdin.
func WithInput(r io.Reader) Option {
	return func(a *App) { a.in = r }
}

// WithMiddleware replaces the default command middleware.
func WithMiddleware(mws ...chain.Middleware) Option {
	return func(a *App) { a.middleware = mws }
}

// NewApp is the constructor for the application. The config must already be
// validated. It returns an App with its own isolated logger.
func NewApp(outW io.Writer, cfg *config.Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		outW:   outW,
		logger: logger,
		config: cfg,
		latest: &notify.Latest{},
		in:     os.Stdin,
		middleware: []chain.Middleware{
			chain.Recover(),
			chain.Logging(),
			chain.Tracing(),
			chain.Metrics(),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.")
	return a
}

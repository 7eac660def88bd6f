// Package server wires and runs camvault: the HTTP gateway over the
// credential store and frame directories, and optionally the capture loop in
// the same process. Both stop together on SIGINT/SIGTERM or when either
// fails.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/camvault/internal/capture"
	"github.com/dmitrijs2005/camvault/internal/clock"
	"github.com/dmitrijs2005/camvault/internal/events"
	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/dmitrijs2005/camvault/internal/server/config"
	"github.com/dmitrijs2005/camvault/internal/server/httpapi"
	"github.com/dmitrijs2005/camvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/camvault/internal/server/services"
	"github.com/dmitrijs2005/camvault/internal/server/shared/db"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config, logger logging.Logger) *App {
	return &App{config: c, logger: logger}
}

// Run serves the gateway, plus the capture loop when CaptureEnabled is set,
// until ctx is cancelled or a signal arrives. It returns nil on a clean stop.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "capture", app.config.CaptureEnabled)

	conn, m, err := app.openStore(ctx)
	if err != nil {
		return app.initFailed(ctx, err)
	}
	defer func() { _ = conn.Close() }()

	us, err := app.userService(ctx, conn, m)
	if err != nil {
		return app.initFailed(ctx, err)
	}
	ms := services.NewMediaService(app.config.MediaPolicy())

	var sched *capture.Scheduler
	opts := httpapi.Options{
		CORSOrigins:     app.config.CORSOrigins,
		ShutdownTimeout: app.config.ShutdownTimeout,
	}
	if app.config.CaptureEnabled {
		var closePublisher func()
		sched, closePublisher, err = app.newScheduler(ctx)
		if err != nil {
			return app.initFailed(ctx, err)
		}
		defer closePublisher()
		opts.CaptureStats = sched.Stats
	}

	srv := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, us, ms, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}

	return app.wait(ctx, g)
}

// RunCapture runs only the capture loop.
func (app *App) RunCapture(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, closePublisher, err := app.newScheduler(ctx)
	if err != nil {
		return app.initFailed(ctx, err)
	}
	defer closePublisher()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })

	return app.wait(ctx, g)
}

// initFailed logs a start-up error. A start-up cut short by cancellation
// counts as a clean stop.
func (app *App) initFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		app.logger.Info(ctx, "app stopped during start-up", "error", err)
		return nil
	}
	app.logger.Error(ctx, "app init failed", "error", err)
	return err
}

func (app *App) wait(ctx context.Context, g *errgroup.Group) error {
	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "app stopped", "error", err)
		return err
	}
	app.logger.Info(ctx, "app stopped")
	return nil
}

// openStore connects to the credential store and brings its schema up to
// date.
func (app *App) openStore(ctx context.Context) (*sql.DB, repomanager.RepositoryManager, error) {
	dialect := app.config.Dialect()

	m, err := repomanager.NewRepositoryManager(dialect)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.Open(ctx, dialect, app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	if err := m.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	return conn, m, nil
}

func (app *App) userService(ctx context.Context, conn *sql.DB, m repomanager.RepositoryManager) (*services.UserService, error) {
	us, err := services.NewUserService(conn, m, app.config.AuthPolicy(), app.logger)
	if err != nil {
		return nil, err
	}

	if err := us.Bootstrap(ctx, app.config.AdminUsername, app.config.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	return us, nil
}

// newScheduler opens both frame directories and the event publisher. An
// unreachable broker downgrades to no events.
func (app *App) newScheduler(ctx context.Context) (*capture.Scheduler, func(), error) {
	archive, err := capture.OpenArchive(ctx, app.config.ArchiveDir, app.config.ArchiveCapacity, app.logger)
	if err != nil {
		return nil, nil, err
	}
	live, err := capture.OpenLive(ctx, app.config.LiveDir, app.logger)
	if err != nil {
		return nil, nil, err
	}

	var publisher events.Publisher = events.Nop{}
	if mc, ok := app.config.MQTTConfig(); ok {
		p, err := events.NewMQTTPublisher(ctx, mc, app.logger)
		if err != nil {
			app.logger.Warn(ctx, "capture events disabled", "broker", mc.Broker, "error", err)
		} else {
			publisher = p
		}
	}

	sched, err := capture.NewScheduler(app.config.CaptureConfig(), app.config.Camera(),
		archive, live, clock.Real(), publisher, app.logger)
	if err != nil {
		publisher.Close()
		return nil, nil, fmt.Errorf("capture init error: %w", err)
	}

	return sched, publisher.Close, nil
}

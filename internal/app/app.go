// Package app provides top-level lifecycle management: it wires the exchange
// clients, aggregator, cache, and HTTP server together and runs them until
// the process is told to stop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/priceindex/internal/config"
	"github.com/alanyoungcy/priceindex/internal/server"
	"github.com/alanyoungcy/priceindex/internal/server/handler"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the streaming session and the HTTP
// server, and blocks until ctx is cancelled. The streaming session shares
// ctx, so cancellation stops it deterministically instead of leaving an
// orphaned background task.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("addr", a.cfg.Server.Addr()),
		slog.Float64("decay_factor", a.cfg.Weighting.DecayFactor),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// The concrete cache is optional; hand the handlers a nil interface
	// rather than a nil pointer when it is disabled.
	var (
		writeCache handler.IndexCache
		readCache  handler.IndexReader
	)
	if deps.IndexCache != nil {
		writeCache = deps.IndexCache
		readCache = deps.IndexCache
	}

	srv := server.New(server.Config{
		Addr:        a.cfg.Server.Addr(),
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Price:  handler.NewPriceHandler(deps.Aggregator, writeCache, a.logger),
		Status: handler.NewStatusHandler(deps.Aggregator.Exchanges(), readCache, a.logger),
	}, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: server: %w", err)
		}
		return nil
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

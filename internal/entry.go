// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/routetree/internal/api"
	"github.com/starford/routetree/internal/mcpserver"
	"github.com/starford/routetree/internal/metrics"
	"github.com/starford/routetree/internal/routedb"
	"github.com/starford/routetree/internal/routeservice"
	"github.com/starford/routetree/internal/routetree"
	"github.com/starford/routetree/internal/seed"
	"github.com/starford/routetree/internal/sse"
	pkgconfig "github.com/starford/routetree/pkg/config"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	level := new(slog.LevelVar)
	logger := app.logger(level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("seed_path", cfg.Seed.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker and metrics observe the service from the first commit.
	broker := sse.NewBroker(cfg.Events.TreeThrottle)
	defer broker.Close()
	m := metrics.New()

	db, svc, err := openService(ctx, cfg, logger,
		routeservice.WithPublisher(broker),
		routeservice.WithMetrics(m))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Seed.Path != "" {
		applySeed(ctx, svc, cfg.Seed.Path, logger)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Ready(req.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the log level when the config file changes.
	if cfg.Watch.Enabled && app.configPath != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configPath, logger, func() {
				reloadLogLevel(app.configPath, level, logger)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the route tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger := app.logger(level)
	slog.SetDefault(logger)

	db, svc, err := openService(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

// RunImport loads the routes in path into the configured database.
func RunImport(ctx context.Context, path string, opts ...Option) (*seed.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	logger := app.logger(level)

	db, svc, err := openService(ctx, app.config, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	f, err := seed.LoadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := seed.Import(ctx, svc, f)
	logger.Info("import finished",
		slog.String("path", path),
		slog.Int("created", len(res.Created)))
	return res, err
}

// errShutdown stops the errgroup once the HTTP server has drained, so the
// config watcher exits with it.
var errShutdown = errors.New("shutdown")

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the JSON logger. Its level is held in level so it can be
// changed while running.
func (a *application) logger(level *slog.LevelVar) *slog.Logger {
	level.Set(a.config.App.LogLevel)
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: level,
	}))
}

// openService opens the database and loads every stored route into a fresh tree.
func openService(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...routeservice.Option) (*routedb.DB, *routeservice.Service, error) {
	db, err := routedb.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}

	opts = append([]routeservice.Option{routeservice.WithLogger(logger)}, opts...)
	svc := routeservice.NewService(routetree.NewStore(), db, opts...)
	if err := svc.Load(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load routes: %w", err)
	}
	return db, svc, nil
}

// applySeed imports the seed entries missing from the tree. Entries already
// stored are skipped, so a seed interrupted on a previous start is completed
// on the next one. Failures are logged and the server starts with whatever
// was committed.
func applySeed(ctx context.Context, svc *routeservice.Service, path string, logger *slog.Logger) *seed.Result {
	f, err := seed.LoadFile(path)
	if err != nil {
		logger.Error("seed not applied", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	existing, err := svc.ListRoutes(ctx)
	if err != nil {
		logger.Error("seed not applied", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}

	res, err := seed.Resume(ctx, svc, f, existing)
	if err != nil {
		logger.Error("seed import incomplete",
			slog.String("path", path),
			slog.Int("created", len(res.Created)),
			slog.Int("skipped", len(res.Skipped)),
			slog.Int("remaining", len(f.Routes)-len(res.Created)-len(res.Skipped)),
			slog.String("error", err.Error()))
		return res
	}
	logger.Info("seed applied",
		slog.String("path", path),
		slog.Int("created", len(res.Created)),
		slog.Int("skipped", len(res.Skipped)))
	return res
}

func reloadLogLevel(path string, level *slog.LevelVar, logger *slog.Logger) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		logger.Warn("config reload failed", slog.String("error", err.Error()))
		return
	}
	if cfg.App.LogLevel == level.Level() {
		return
	}
	level.Set(cfg.App.LogLevel)
	logger.Info("log level changed", slog.String("log_level", cfg.App.LogLevel.String()))
}

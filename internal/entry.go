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

	"github.com/starford/graphgen/internal/api"
	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/flowservice"
	"github.com/starford/graphgen/internal/generator"
	"github.com/starford/graphgen/internal/graph"
	"github.com/starford/graphgen/internal/history"
	"github.com/starford/graphgen/internal/mcpserver"
	"github.com/starford/graphgen/internal/metrics"
	"github.com/starford/graphgen/internal/resolver"
)

// components are the pieces shared by the HTTP and MCP entry points.
type components struct {
	logger  *slog.Logger
	modes   *directives.Registry
	service *flowservice.Service
	metrics *metrics.Metrics
	closers []func() error
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// build wires the generator, directive registry, history and metrics.
func (app *application) build() (*components, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Any("allowed_origins", cfg.App.HTTP.AllowedOrigins),
		slog.String("model", cfg.Generator.Model),
		slog.String("base_url", cfg.Generator.BaseURL),
		slog.String("directives_path", cfg.Directives.Path),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	gen := app.generator
	if gen == nil {
		if cfg.Generator.APIKey == "" {
			return nil, fmt.Errorf("generator: %s is not set", EnvAPIKey)
		}
		client, err := generator.NewOpenAI(generator.Options{
			APIKey:     cfg.Generator.APIKey,
			BaseURL:    cfg.Generator.BaseURL,
			Model:      cfg.Generator.Model,
			Timeout:    cfg.Generator.Timeout,
			SchemaName: graph.SchemaName,
		})
		if err != nil {
			return nil, fmt.Errorf("init generator: %w", err)
		}
		gen = client
	}

	modes, err := directives.NewRegistry(cfg.Directives.Path)
	if err != nil {
		return nil, fmt.Errorf("init directives: %w", err)
	}

	c := &components{logger: logger, modes: modes, metrics: metrics.New()}
	svcOpts := []flowservice.Option{
		flowservice.WithLogger(logger),
		flowservice.WithMetrics(c.metrics),
	}
	if cfg.History.Enabled() {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		svcOpts = append(svcOpts, flowservice.WithRecorder(db))
	}

	c.service = flowservice.NewService(resolver.New(gen, modes, logger), svcOpts...)
	return c, nil
}

// newHandler builds the root HTTP handler: health, metrics and the API routes.
func newHandler(c *components, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(c.logger))
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", c.metrics.Handler())

	r.Mount("/", api.NewRouter(c.service, cfg.App.HTTP.AllowedOrigins))
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := app.build()
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(c, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload generation modes when the directives file changes.
	g.Go(func() error {
		return directives.Watch(gCtx, c.modes, logger)
	})

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP protocol on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := app.build()
	if err != nil {
		return err
	}
	defer c.close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return directives.Watch(gCtx, c.modes, c.logger)
	})
	g.Go(func() error {
		c.logger.Info("Starting MCP server on stdio")
		err := mcpserver.New(c.service, app.version).ServeStdio()
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		c.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

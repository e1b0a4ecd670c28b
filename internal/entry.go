// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/chalkbook/internal/api"
	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/mcpserver"
	"github.com/starford/chalkbook/internal/sse"
	"github.com/starford/chalkbook/internal/storage"
	"github.com/starford/chalkbook/internal/watcher"
)

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

// logger initializes the structured JSON logger and makes it the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// backend is an opened storage provider plus what is needed to watch and close it.
type backend struct {
	provider storage.Provider
	dir      string // settings directory; empty unless file-backed
	close    func() error
}

func openBackend(cfg StorageConfig) (*backend, error) {
	switch cfg.Backend {
	case BackendMemory:
		return &backend{provider: storage.NewMemory(), close: func() error { return nil }}, nil

	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite storage: %w", err)
		}
		return &backend{provider: db, close: db.Close}, nil

	default:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init file storage: %w", err)
		}
		return &backend{provider: fs, dir: fs.Root(), close: func() error { return nil }}, nil
	}
}

func openStore(cfg *Config, b *backend, logger *slog.Logger) (*climbstore.Store, error) {
	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, err
	}
	store := climbstore.New(b.provider,
		climbstore.WithKey(cfg.Storage.Key),
		climbstore.WithLocation(loc),
		climbstore.WithLogger(logger),
	)
	logger.Info("Climb store opened",
		slog.String("backend", cfg.Storage.Backend),
		slog.String("key", cfg.Storage.Key),
		slog.String("timezone", loc.String()),
		slog.Int("climbs", store.Count()))
	return store, nil
}

// newRouter builds the top-level chi router: health checks outside auth,
// the REST API and event stream under /api.
func newRouter(cfg *Config, store *climbstore.Store, broker *sse.Broker) http.Handler {
	apiRouter := api.NewRouter(store, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	r.Mount("/api", apiRouter)
	return r
}

// relayEvents forwards store changes to SSE clients until the returned
// cancel func is called.
func relayEvents(store *climbstore.Store, broker *sse.Broker) func() {
	return store.Subscribe(func(ev climbstore.Event) {
		broker.PublishClimbEvent(string(ev.Kind), sse.RefOf(ev.Climb))
	})
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	b, err := openBackend(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = b.close() }()

	store, err := openStore(cfg, b, logger)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()
	stopRelay := relayEvents(store, broker)
	defer stopRelay()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(cfg, store, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the store when another process rewrites the settings file.
	if b.dir != "" && cfg.Storage.Watch {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, b.dir, cfg.Storage.Key, store, logger, watcher.DefaultDebounce); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
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

// RunMCP serves the MCP tools on stdin/stdout over the configured storage.
// Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		app.logOutput = io.Discard
	}
	logger := app.logger()

	b, err := openBackend(app.config.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = b.close() }()

	store, err := openStore(app.config, b, logger)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(store).Serve(ctx, os.Stdin, os.Stdout)
}

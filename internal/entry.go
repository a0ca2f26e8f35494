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

	"github.com/starford/lexikon/internal/api"
	"github.com/starford/lexikon/internal/inbox"
	"github.com/starford/lexikon/internal/index"
	"github.com/starford/lexikon/internal/metrics"
	"github.com/starford/lexikon/internal/register"
	"github.com/starford/lexikon/internal/registerservice"
	"github.com/starford/lexikon/internal/sortkey"
	"github.com/starford/lexikon/internal/sse"
	"github.com/starford/lexikon/internal/storage"
)

// Runtime holds the components shared by every command.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *storage.FS
	Service *registerservice.Service

	db *index.DB
}

// Close releases the index.
func (rt *Runtime) Close() error {
	if rt.db == nil {
		return nil
	}
	return rt.db.Close()
}

// Open loads the catalog, the author directory and every persisted
// register, opens the index and brings it up to date.
func Open(opts ...Option) (*Runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	inboxDir, err := store.Abs(cfg.Data.Inbox)
	if err != nil {
		return nil, fmt.Errorf("init inbox: %w", err)
	}
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}

	catalog, err := cfg.Register.Catalog()
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	authors, err := register.ReadAuthorDirectory(store)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	keys, err := sortkey.NewCache(cfg.Register.SortKeyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init sort key cache: %w", err)
	}
	regOpts := []register.Option{register.WithKeyCache(keys)}
	if len(cfg.Register.Alphabet) > 0 {
		regOpts = append(regOpts, register.WithBoundaries(cfg.Register.Alphabet))
	}
	regs := register.NewRegisters(catalog, authors, store, regOpts...)
	if err := regs.Load(); err != nil {
		return nil, fmt.Errorf("load registers: %w", err)
	}
	logger.Info("Registers loaded",
		slog.String("data_root", store.Root()),
		slog.Int("volumes", len(regs.Volumes())),
		slog.Int("catalog", catalog.Len()),
		slog.Int("authors", len(authors.Names())))

	svcOpts := []registerservice.Option{
		registerservice.WithKeyCache(keys),
		registerservice.WithCheckOptions(cfg.Register.CheckOptions()),
	}
	if app.publisher != nil {
		svcOpts = append(svcOpts, registerservice.WithPublisher(app.publisher))
	}

	rt := &Runtime{Config: cfg, Logger: logger, Store: store}
	if !app.noIndex {
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		svcOpts = append(svcOpts, registerservice.WithIndex(db))
	}
	rt.Service = registerservice.New(regs, logger, svcOpts...)
	rt.Service.SyncIndex()
	return rt, nil
}

// Run starts the HTTP server and the inbox watcher.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	broker := sse.NewBroker(cfg.Register.EventThrottle)
	defer broker.Close()

	rt, err := Open(append(opts, withPublisher(broker))...)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	metricsHandler, err := metrics.Handler(rt.Service.Stats)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	apiRouter := api.NewRouter(rt.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Method(http.MethodGet, "/metrics", metricsHandler)
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := inbox.Watch(gCtx, rt.Store, cfg.Data.Inbox, logger, rt.Service.ApplyFile)
		if err != nil && gCtx.Err() == nil {
			return fmt.Errorf("inbox watcher: %w", err)
		}
		return nil
	})

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

// errShutdown cancels the group so the inbox watcher stops with the server.
var errShutdown = errors.New("shutdown")

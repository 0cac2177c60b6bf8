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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/munin/internal/api"
	"github.com/starford/munin/internal/capture"
	"github.com/starford/munin/internal/consolidate"
	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/match"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/note"
	"github.com/starford/munin/internal/semantic"
	"github.com/starford/munin/internal/sse"
	"github.com/starford/munin/internal/storage"
	"github.com/starford/munin/internal/vault"
)

// Components bundles the engine pieces shared by the serve, mcp,
// capture, and consolidate entry points.
type Components struct {
	Store        storage.Provider
	Scanner      *vault.Scanner
	Matcher      *match.Matcher
	Mutator      *note.Mutator
	Capture      *capture.Service
	Semantic     *semantic.Matcher
	Consolidator *consolidate.Consolidator
	Logger       *slog.Logger
}

// NewLogger builds the process-wide structured JSON logger.
func NewLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Build initializes storage and the engine components from the
// validated configuration, creating the vault layout if missing.
func Build(cfg *Config, logger *slog.Logger) (*Components, error) {
	for _, c := range models.Categories() {
		if err := os.MkdirAll(filepath.Join(cfg.Vault.Path, string(c)), 0o755); err != nil {
			return nil, fmt.Errorf("create vault dir: %w", err)
		}
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	scanner := vault.NewScanner(store, logger)
	matcher := match.New(scanner)
	mutator := note.NewMutator(store, logger)
	cap := capture.NewService(matcher, mutator, cfg.Dedup.Enabled, cfg.Dedup.Threshold, logger)

	var sem *semantic.Matcher
	var grouper consolidate.Grouper
	if cfg.Semantic.Enabled {
		sem = semantic.NewMatcher(cfg.Semantic.Command, cfg.Semantic.Model, cfg.Semantic.Timeout.Std(), logger)
		grouper = sem
	}
	cons := consolidate.New(scanner, mutator, grouper, cfg.Dedup.Threshold, logger)

	return &Components{
		Store:        store,
		Scanner:      scanner,
		Matcher:      matcher,
		Mutator:      mutator,
		Capture:      cap,
		Semantic:     sem,
		Consolidator: cons,
		Logger:       logger,
	}, nil
}

// Run starts the HTTP server mode with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := NewLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("dedup_enabled", cfg.Dedup.Enabled),
		slog.Float64("dedup_threshold", cfg.Dedup.Threshold),
		slog.Bool("semantic_enabled", cfg.Semantic.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	comp, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, comp.Store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(30 * time.Second)
	defer broker.Close()

	// Build API service and router.
	svc := api.NewService(comp.Store, db, comp.Capture, comp.Matcher, comp.Consolidator, cfg.Dedup.Threshold)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, db, comp.Store, cfg.Vault.Path, logger, func(kind, path string) {
			broker.PublishNoteEvent(kind, path)
		})
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

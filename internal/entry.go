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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/curator/internal/api"
	"github.com/starford/curator/internal/index"
	"github.com/starford/curator/internal/mcpserver"
	"github.com/starford/curator/internal/scheduler"
	"github.com/starford/curator/internal/sse"
)

func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(logOut, app.config.App.LogLevel)
	}
	return app, nil
}

// Run starts the HTTP server, the vault watcher and the daily scheduler, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("config: loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("ai_enabled", cfg.AI.APIKey != ""),
		slog.Bool("scheduler_enabled", cfg.Scheduler.Enabled))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	cur, err := Open(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer cur.Close()
	svc := cur.Service

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, api.RateLimitConfig{
		RequestLimit: cfg.RateLimit.RequestLimit,
		WindowSize:   cfg.RateLimit.WindowSize,
	})

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
		if err := cur.DB.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Vault watcher feeding the index, change ring and SSE.
	g.Go(func() error {
		w := index.NewWatcher(cur.DB, cur.Store, logger, index.WithChangeFunc(svc.RecordChange))
		if err := w.Run(gCtx); err != nil {
			logger.Error("watcher: failed", slog.String("error", err.Error()))
		}
		return nil
	})

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.Time, svc.DailyRun, logger,
			scheduler.WithLastRun(svc.LastActivity()))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return sched.Run(gCtx)
		})
	}

	g.Go(func() error {
		logger.Info("http: starting server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
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
			logger.Info("server: received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("server: context cancelled, shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http: shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("server: stopped with error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server: stopped")
	return nil
}

// errShutdown cancels the group once the HTTP server is down so the watcher
// and scheduler exit too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. The vault watcher keeps the index
// current for the lifetime of the session. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.logger

	cur, err := Open(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer cur.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		w := index.NewWatcher(cur.DB, cur.Store, logger, index.WithChangeFunc(cur.Service.RecordChange))
		if err := w.Run(ctx); err != nil {
			logger.Error("watcher: failed", slog.String("error", err.Error()))
		}
	}()

	srv := mcpserver.New(cur.Service, app.config.QualityRules(), app.version)
	logger.Info("mcp: serving on stdio", slog.String("vault", cur.Service.VaultName()))
	return srv.ServeStdio()
}

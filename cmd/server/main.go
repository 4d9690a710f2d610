// Package main is the entrypoint for the hookqueue API server.
package main

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

	"github.com/kiranshivaraju/hookqueue/internal/api"
	"github.com/kiranshivaraju/hookqueue/internal/api/handler"
	mw "github.com/kiranshivaraju/hookqueue/internal/api/middleware"
	"github.com/kiranshivaraju/hookqueue/internal/api/response"
	"github.com/kiranshivaraju/hookqueue/internal/cache"
	"github.com/kiranshivaraju/hookqueue/internal/config"
	"github.com/kiranshivaraju/hookqueue/internal/hook"
	"github.com/kiranshivaraju/hookqueue/internal/queue"
	"github.com/kiranshivaraju/hookqueue/internal/scheduler"
	"github.com/kiranshivaraju/hookqueue/internal/store"
)

const shutdownTimeout = 30 * time.Second

var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(cfg.Server.LogLevel)
	slog.Info("config loaded", "env", cfg.Server.Env, "queueable_hooks", cfg.Hooks.Queueable)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store, registry, scheduler and job manager
	pgStore := store.NewPostgresStore(pool)
	registry := hook.NewDefaultRegistry(cfg.Hooks.Queueable)
	slog.Info("hooks registered", "hooks", registry.Hooks())

	sched := scheduler.NewRedisScheduler(redisCache.Client(),
		scheduler.WithInterval(cfg.Scheduler.PollInterval),
		scheduler.WithBatchSize(cfg.Scheduler.BatchSize),
	)
	mgr := queue.NewManager(pgStore, registry, sched)

	// 6. Start scheduler poller
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		err := sched.Run(ctx, func(ctx context.Context, jobID int64) error {
			// A claimed event must finish even if shutdown starts mid-run
			_, err := mgr.Execute(context.WithoutCancel(ctx), jobID)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("scheduler exited", "error", err)
		}
	}()

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler:    healthHandler(pgStore, redisCache, sched),
		CreateJobHandler: handler.NewCreateJobHandler(mgr),
		JobStatusHandler: handler.NewJobStatusHandler(mgr),
		JobResults:       handler.NewJobResultsHandler(mgr),
		DeleteJobHandler: handler.NewDeleteJobHandler(mgr),
		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		stop()
		<-schedDone
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		slog.Warn("scheduler did not stop before shutdown timeout")
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pendingCounter reports how many job events are waiting to fire.
type pendingCounter interface {
	Pending(ctx context.Context) (int64, error)
}

// healthHandler checks database, cache and scheduler connectivity.
func healthHandler(s store.Store, c cache.Cache, sched pendingCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database":  "ok",
			"cache":     "ok",
			"scheduler": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		pending, err := sched.Pending(r.Context())
		if err != nil {
			checks["scheduler"] = "degraded"
		}

		for _, v := range checks {
			if v != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":         "ok",
			"services":       checks,
			"scheduled_jobs": pending,
		})
	}
}

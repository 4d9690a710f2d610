package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/hookqueue/internal/cache"
	"github.com/kiranshivaraju/hookqueue/internal/config"
	"github.com/kiranshivaraju/hookqueue/internal/hook"
	"github.com/kiranshivaraju/hookqueue/internal/queue"
	"github.com/kiranshivaraju/hookqueue/internal/scheduler"
	"github.com/kiranshivaraju/hookqueue/internal/store"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "hookqueue",
	Short: "hookqueue is the command-line interface for the hookqueue job service.",
	Long: `Administrative commands for hookqueue: apply database migrations, mint API keys,
and inspect or manually trigger jobs.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print output as JSON")
}

// app holds the services a CLI command works against.
type app struct {
	cfg     *config.Config
	store   *store.PostgresStore
	manager *queue.Manager
}

// initApp loads config and connects to Postgres and Redis. The returned
// cleanup closes both.
func initApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}

	cleanup := func() {
		_ = redisCache.Close()
		pool.Close()
	}

	pgStore := store.NewPostgresStore(pool)
	registry := hook.NewDefaultRegistry(cfg.Hooks.Queueable)
	sched := scheduler.NewRedisScheduler(redisCache.Client())

	return &app{
		cfg:     cfg,
		store:   pgStore,
		manager: queue.NewManager(pgStore, registry, sched),
	}, cleanup, nil
}

// openPool is used by commands that only need the database.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, pool, nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the hookqueue server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Hooks     HooksConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           slog.Level
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

type SchedulerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// HooksConfig lists the hooks clients may enqueue. A hook must be both
// queueable and have a registered handler to be accepted.
type HooksConfig struct {
	Queueable []string
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("HOOKQUEUE_PORT", 8080),
			Env:                envString("HOOKQUEUE_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Scheduler: SchedulerConfig{
			PollInterval: envDuration("SCHEDULER_POLL_INTERVAL", time.Second),
			BatchSize:    envInt("SCHEDULER_BATCH_SIZE", 50),
		},
		Hooks: loadHooks(),
	}

	level, err := parseLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.Server.LogLevel = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HOOKQUEUE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive, got %s", c.Scheduler.PollInterval)
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("SCHEDULER_BATCH_SIZE must be positive, got %d", c.Scheduler.BatchSize)
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
	return level, nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// LoadHooks reads only the hook settings. It needs neither DATABASE_URL nor
// REDIS_URL, so tooling can inspect the registry without backing services.
func LoadHooks() HooksConfig {
	_ = godotenv.Load()
	return loadHooks()
}

func loadHooks() HooksConfig {
	return HooksConfig{
		Queueable: envList("QUEUEABLE_HOOKS", []string{"ping"}),
	}
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKey       = "hookqueue:schedule"
	defaultInterval  = time.Second
	defaultBatchSize = 50
)

// ErrAlreadyScheduled is returned when the job already has a pending event.
var ErrAlreadyScheduled = errors.New("job is already scheduled")

// ExecuteFunc runs one scheduled job.
type ExecuteFunc func(ctx context.Context, jobID int64) error

// RedisScheduler stores one-shot job events in a Redis sorted set scored by
// run time. Pollers claim due events with ZREM so that each event fires at
// most once across processes.
type RedisScheduler struct {
	client    redis.Cmdable
	key       string
	interval  time.Duration
	batchSize int64
}

// Option configures a RedisScheduler.
type Option func(*RedisScheduler)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(s *RedisScheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBatchSize caps how many due events one tick claims.
func WithBatchSize(n int) Option {
	return func(s *RedisScheduler) {
		if n > 0 {
			s.batchSize = int64(n)
		}
	}
}

// WithKey overrides the sorted set key.
func WithKey(key string) Option {
	return func(s *RedisScheduler) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedisScheduler creates a scheduler on top of an existing Redis client.
func NewRedisScheduler(client redis.Cmdable, opts ...Option) *RedisScheduler {
	s := &RedisScheduler{
		client:    client,
		key:       defaultKey,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers a single event for jobID at runAt.
func (s *RedisScheduler) Schedule(ctx context.Context, jobID int64, runAt time.Time) error {
	added, err := s.client.ZAddNX(ctx, s.key, redis.Z{
		Score:  float64(runAt.UnixMilli()),
		Member: strconv.FormatInt(jobID, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("schedule job %d: %w", jobID, err)
	}
	if added == 0 {
		return ErrAlreadyScheduled
	}
	return nil
}

// Pending returns the number of events not yet triggered.
func (s *RedisScheduler) Pending(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count scheduled jobs: %w", err)
	}
	return n, nil
}

// Run polls for due events until ctx is done.
func (s *RedisScheduler) Run(ctx context.Context, fn ExecuteFunc) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("scheduler started", "key", s.key, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunDue(ctx, fn); err != nil && ctx.Err() == nil {
				slog.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// RunDue claims and runs every event whose time has come, up to the batch
// size. It returns how many events it ran.
func (s *RedisScheduler) RunDue(ctx context.Context, fn ExecuteFunc) (int, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(time.Now().UnixMilli(), 10),
		Count: s.batchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("read due jobs: %w", err)
	}

	ran := 0
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, s.key, member).Result()
		if err != nil {
			return ran, fmt.Errorf("claim job %s: %w", member, err)
		}
		if removed == 0 {
			// another poller got it first
			continue
		}

		jobID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			slog.Warn("dropping malformed scheduled event", "member", member)
			continue
		}

		ran++
		if err := fn(ctx, jobID); err != nil {
			slog.Warn("scheduled job failed", "job_id", jobID, "error", err)
			continue
		}
		slog.Debug("scheduled job ran", "job_id", jobID)
	}
	return ran, nil
}

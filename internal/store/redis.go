package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisPrefix namespaces every key tburn writes.
	DefaultRedisPrefix = "tburn:"

	runsKey     = "runs"
	maxRedisRun = 200
)

// Redis stores blobs as plain string values and the run history as a
// capped list, newest first.
type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the server at url and verifies the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	slog.Debug("redis store connected", "addr", opts.Addr)
	return NewRedis(client, prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Read returns the value stored under key.
func (r *Redis) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q from redis: %w", key, err)
	}
	return data, nil
}

// Write replaces the value stored under key. The value never expires.
func (r *Redis) Write(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing %q to redis: %w", key, err)
	}
	return nil
}

// RecordRun pushes r onto the history list and trims it.
func (r *Redis) RecordRun(ctx context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.prefix+runsKey, data)
	pipe.LTrim(ctx, r.prefix+runsKey, 0, maxRedisRun-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecentRuns returns up to n runs, newest first.
func (r *Redis) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	items, err := r.client.LRange(ctx, r.prefix+runsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	runs := make([]Run, 0, len(items))
	for _, item := range items {
		var run Run
		if err := json.Unmarshal([]byte(item), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

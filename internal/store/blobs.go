// Package store persists the usage store as an opaque JSON blob under a
// single key, with SQLite, plain-file and Redis backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultKey is the key the usage store is written under.
const DefaultKey = "usage-store"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ErrNoHistory is returned by backends that do not keep collection runs.
var ErrNoHistory = errors.New("store: backend does not record run history")

// Blobs is a minimal key/value persistence facility.
// Read returns (nil, nil) when the key has never been written.
type Blobs interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// Run is one collection attempt as recorded in the run history.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Host       string    `json:"host,omitempty" yaml:"host,omitempty"`
	Collected  int       `json:"collected" yaml:"collected"`
	Updated    int       `json:"updated" yaml:"updated"`
	Total      int       `json:"total" yaml:"total"`
	Pages      int       `json:"pages" yaml:"pages"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunLog is implemented by backends that keep a history of collection runs.
type RunLog interface {
	RecordRun(ctx context.Context, r Run) error
	RecentRuns(ctx context.Context, n int) ([]Run, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Path      string // sqlite database file, or directory for the file backend
	RedisURL  string
	KeyPrefix string
}

// Open returns the configured backend. An empty backend means SQLite.
func Open(ctx context.Context, cfg Config) (Blobs, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendFile:
		return NewFileBlobs(cfg.Path), nil
	case BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

// History returns the run log of b, or ErrNoHistory.
func History(b Blobs) (RunLog, error) {
	if rl, ok := b.(RunLog); ok {
		return rl, nil
	}
	return nil, ErrNoHistory
}

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBlobs stores each key as <dir>/<key>.json.
type FileBlobs struct {
	mu  sync.RWMutex
	dir string
}

// NewFileBlobs creates a file backend rooted at dir.
func NewFileBlobs(dir string) *FileBlobs {
	return &FileBlobs{dir: dir}
}

func (f *FileBlobs) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Read returns the contents of the key's file.
func (f *FileBlobs) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading blob file: %w", err)
	}
	return data, nil
}

// Write replaces the key's file atomically.
func (f *FileBlobs) Write(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	target := f.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing blob file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming blob file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *FileBlobs) Close() error {
	return nil
}

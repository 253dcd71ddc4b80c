package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/theirongolddev/tburn/internal/model"
)

// Load reads the usage store under key. A missing or unparseable blob
// yields an empty store; only backend failures are returned as errors.
func Load(ctx context.Context, b Blobs, key string, log *slog.Logger) (*model.UsageStore, error) {
	data, err := b.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return model.NewUsageStore(), nil
	}

	var s model.UsageStore
	if err := json.Unmarshal(data, &s); err != nil {
		if log != nil {
			log.Warn("stored usage data is unreadable, starting empty", "key", key, "error", err)
		}
		return model.NewUsageStore(), nil
	}
	if s.Records == nil {
		s.Records = make(map[string]model.UsageRecord)
	}
	return &s, nil
}

// Save writes the whole usage store under key.
func Save(ctx context.Context, b Blobs, key string, s *model.UsageStore) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding usage store: %w", err)
	}
	return b.Write(ctx, key, data)
}

package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/theirongolddev/tburn/internal/model"
)

func newRedisBlobs(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	r := NewRedis(client, "test:")
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func backends(t *testing.T) map[string]Blobs {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(filepath.Join(dir, "usage.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	r, _ := newRedisBlobs(t)
	return map[string]Blobs{
		"sqlite": sqlite,
		"file":   NewFileBlobs(filepath.Join(dir, "blobs")),
		"redis":  r,
	}
}

func TestBlobs_ReadMissing(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			data, err := b.Read(context.Background(), "nope")
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if data != nil {
				t.Fatalf("Read = %q, want nil", data)
			}
		})
	}
}

func TestBlobs_WriteReplaces(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Write(ctx, DefaultKey, []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := b.Write(ctx, DefaultKey, []byte(`{"a":2}`)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			data, err := b.Read(ctx, DefaultKey)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(data) != `{"a":2}` {
				t.Fatalf("Read = %q, want second write", data)
			}
		})
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewFileBlobs(t.TempDir())

	s := model.NewUsageStore()
	s.LastUpdateTime = 1700003600
	s.CoveredStart = 1700000000
	s.CoveredEnd = 1700003600
	s.Records["s1"] = model.UsageRecord{
		SessionID: "s1", UsageTime: 1700001000, ModelName: "gpt-4.1", Mode: "chat",
		Amount: 2, CostMoney: 0.1, Tokens: model.TokenCounts{Input: 10, Output: 5},
	}
	if err := Save(ctx, b, DefaultKey, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(ctx, b, DefaultKey, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastUpdateTime != s.LastUpdateTime || len(got.Records) != 1 {
		t.Fatalf("Load = %+v", got)
	}
	if got.Records["s1"] != s.Records["s1"] {
		t.Fatalf("record = %+v, want %+v", got.Records["s1"], s.Records["s1"])
	}
}

func TestLoad_CorruptBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultKey+".json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(ctx, NewFileBlobs(dir), DefaultKey, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LastUpdateTime != 0 || len(s.Records) != 0 || s.Records == nil {
		t.Fatalf("Load = %+v, want empty store", s)
	}
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	r, _ := newRedisBlobs(t)

	for name, b := range map[string]Blobs{"sqlite": sqlite, "redis": r} {
		t.Run(name, func(t *testing.T) {
			log, err := History(b)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
			for i, id := range []string{"a", "b", "c"} {
				start := base.Add(time.Duration(i) * time.Minute)
				run := Run{ID: id, StartedAt: start, FinishedAt: start.Add(time.Second), Collected: i}
				if id == "b" {
					run.Error = "network unstable"
				}
				if err := log.RecordRun(ctx, run); err != nil {
					t.Fatalf("RecordRun: %v", err)
				}
			}

			runs, err := log.RecentRuns(ctx, 2)
			if err != nil {
				t.Fatalf("RecentRuns: %v", err)
			}
			if len(runs) != 2 {
				t.Fatalf("runs = %d, want 2", len(runs))
			}
			if runs[0].ID != "c" || runs[1].ID != "b" {
				t.Fatalf("runs = [%s, %s], want [c, b]", runs[0].ID, runs[1].ID)
			}
			if runs[1].Error != "network unstable" {
				t.Fatalf("runs[1].Error = %q", runs[1].Error)
			}
			if !runs[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
				t.Fatalf("runs[0].StartedAt = %v", runs[0].StartedAt)
			}
		})
	}
}

func TestHistory_FileBackend(t *testing.T) {
	if _, err := History(NewFileBlobs(t.TempDir())); err != ErrNoHistory {
		t.Fatalf("History = %v, want ErrNoHistory", err)
	}
}

func TestRedis_Unavailable(t *testing.T) {
	r, mr := newRedisBlobs(t)
	mr.Close()

	if err := r.Write(context.Background(), DefaultKey, []byte("x")); err == nil {
		t.Fatal("expected Write to fail when redis is unavailable")
	}
	if _, err := r.Read(context.Background(), DefaultKey); err == nil {
		t.Fatal("expected Read to fail when redis is unavailable")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Config{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

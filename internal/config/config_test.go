package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Collector.PageSize != 50 || cfg.Collector.RetryMax != 5 {
		t.Errorf("collector defaults = %+v", cfg.Collector)
	}
	if cfg.PageDelay() != time.Second || cfg.RetryDelay() != time.Second {
		t.Errorf("delays = %v/%v, want 1s/1s", cfg.PageDelay(), cfg.RetryDelay())
	}
	if cfg.Overlap() != time.Hour {
		t.Errorf("Overlap() = %v, want 1h", cfg.Overlap())
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
}

func TestLoadFrom_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[trae]
session_id = "abc"
host = "https://api-us-east.trae.ai"

[collector]
page_size = 20
page_delay_ms = 250

[storage]
backend = "file"
path = "/tmp/tburn"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Trae.SessionID != "abc" || cfg.Trae.Host != "https://api-us-east.trae.ai" {
		t.Errorf("trae = %+v", cfg.Trae)
	}
	if cfg.Collector.PageSize != 20 || cfg.PageDelay() != 250*time.Millisecond {
		t.Errorf("collector = %+v", cfg.Collector)
	}
	if cfg.Collector.RetryMax != 5 {
		t.Errorf("RetryMax = %d, want default 5 kept", cfg.Collector.RetryMax)
	}
	if cfg.StoragePath() != "/tmp/tburn" {
		t.Errorf("StoragePath() = %q", cfg.StoragePath())
	}
}

func TestLoadFrom_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[trae\nsession_id ="), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRAE_SESSION_ID", "from-env")
	t.Setenv("TBURN_STORAGE_BACKEND", "redis")
	t.Setenv("TBURN_REDIS_URL", "redis://localhost:6379/2")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	cfg.Trae.SessionID = "from-file"
	if got := GetSessionID(cfg); got != "from-env" {
		t.Errorf("GetSessionID = %q, want from-env", got)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestSettings_SetHostPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Trae.SessionID = "abc"
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	s := NewSettings(path, cfg)
	if s.Host() != "" {
		t.Fatalf("Host() = %q, want empty", s.Host())
	}
	if err := s.SetHost("https://api-us-east.trae.ai"); err != nil {
		t.Fatalf("SetHost: %v", err)
	}
	if s.Host() != "https://api-us-east.trae.ai" {
		t.Fatalf("Host() = %q after SetHost", s.Host())
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if reloaded.Trae.Host != "https://api-us-east.trae.ai" {
		t.Errorf("persisted host = %q", reloaded.Trae.Host)
	}
	if reloaded.Trae.SessionID != "abc" {
		t.Errorf("session id lost on rewrite: %q", reloaded.Trae.SessionID)
	}
}

package config

import "sync"

// Settings exposes the session id and the current host backed by a config
// file. SetHost rewrites the file.
type Settings struct {
	mu   sync.Mutex
	path string
	cfg  Config
}

// NewSettings wraps cfg, which was loaded from path.
func NewSettings(path string, cfg Config) *Settings {
	return &Settings{path: path, cfg: cfg}
}

// SessionID returns the configured session id, env override first.
func (s *Settings) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GetSessionID(s.cfg)
}

// Host returns the persisted host, or "" when none was stored.
func (s *Settings) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Trae.Host
}

// SetHost records host and persists it. The on-disk file is re-read first
// so edits made since startup are kept.
func (s *Settings) SetHost(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Trae.Host = host
	onDisk, err := ReadFile(s.path)
	if err != nil {
		return err
	}
	onDisk.Trae.Host = host
	return SaveTo(s.path, onDisk)
}

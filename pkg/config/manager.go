package config

import (
	"sync"

	"github.com/dd0wney/cluso-pgpool/pkg/logging"
)

// Manager holds the active config snapshot and swaps it on reload.
// Readers always see a complete snapshot; a failed reload keeps the
// previous one active.
type Manager struct {
	mu     sync.RWMutex
	cfg    *Config
	logger logging.Logger
}

// NewManager wraps an already-loaded config
func NewManager(cfg *Config, logger logging.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger,
	}
}

// Current returns the active config snapshot
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Reload re-reads the config file and swaps the active snapshot.
// On error the active snapshot is left untouched.
func (m *Manager) Reload() (*Config, error) {
	m.mu.RLock()
	path := m.cfg.Path
	m.mu.RUnlock()

	cfg, err := Load(path)
	if err != nil {
		m.logger.Error("config reload failed", logging.String("path", path), logging.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	m.logger.Info("config reloaded", logging.String("path", path), logging.Int("pools", len(cfg.Pools)))
	return cfg, nil
}

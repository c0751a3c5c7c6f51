package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const DefaultClientSettingsFile = "/app/config/client-settings.json"

// ClientSettings are the polling knobs an operator can change while the
// dashboard runs.
type ClientSettings struct {
	RefreshIntervalMS int `json:"refresh_interval_ms"`
	JobsLimit         int `json:"jobs_limit"`
}

func (s ClientSettings) Validate() error {
	if s.RefreshIntervalMS <= 0 {
		return fmt.Errorf("refresh_interval_ms must be positive")
	}
	if s.JobsLimit < 1 || s.JobsLimit > MaxJobsLimit {
		return fmt.Errorf("jobs_limit must be between 1 and %d", MaxJobsLimit)
	}
	return nil
}

func (c *Config) ClientSettings() ClientSettings {
	return ClientSettings{
		RefreshIntervalMS: c.Poll.RefreshIntervalMS,
		JobsLimit:         c.Poll.JobsLimit,
	}
}

// WithClientSettings overrides the env values with a saved settings file.
// Zero fields keep the env value.
func WithClientSettings(settings ClientSettings) Option {
	return func(c *Config) {
		if settings.RefreshIntervalMS > 0 {
			c.Poll.RefreshIntervalMS = settings.RefreshIntervalMS
		}
		if settings.JobsLimit > 0 {
			c.Poll.JobsLimit = settings.JobsLimit
		}
	}
}

func LoadClientSettingsFile(path string) (ClientSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientSettings{}, err
	}
	var settings ClientSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return ClientSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteClientSettingsFile(path string, settings ClientSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// ApplyFunc pushes accepted settings into the running dashboard.
type ApplyFunc func(ClientSettings)

type ClientSettingsStore struct {
	path  string
	apply ApplyFunc

	mu      sync.RWMutex
	current ClientSettings
}

func NewClientSettingsStore(path string, initial ClientSettings, apply ApplyFunc) (*ClientSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &ClientSettingsStore{
		path:    path,
		apply:   apply,
		current: initial,
	}, nil
}

func (s *ClientSettingsStore) GetClientSettings() (ClientSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// UpdateClientSettings validates and persists next, then applies it live.
func (s *ClientSettingsStore) UpdateClientSettings(next ClientSettings) (ClientSettings, error) {
	if err := next.Validate(); err != nil {
		return ClientSettings{}, err
	}
	if err := WriteClientSettingsFile(s.path, next); err != nil {
		return ClientSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	if s.apply != nil {
		s.apply(next)
	}
	return next, nil
}

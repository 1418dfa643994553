package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/wikisync/wikisync/internal/utils"
)

const defaultPollIntervalMs = 5000

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".wikisync", "config.json")
	DefaultLogPath    = filepath.Join(home, ".wikisync", "logs", "wikisync.log")
)

var (
	ErrNoWatchDir  = errors.New("config: watch_dir is required")
	ErrNoServerURL = errors.New("config: server_url is required")
	ErrNoSpaceID   = errors.New("config: space_id is required")
)

type Config struct {
	WatchDir       string `json:"watch_dir"`
	ServerURL      string `json:"server_url"`
	Token          string `json:"token"`
	SpaceID        string `json:"space_id"`
	PollIntervalMs int    `json:"poll_interval_ms"`
	Path           string `json:"-"`
}

// Validate checks the required fields. A failure here is fatal at startup.
func (c *Config) Validate() error {
	if c.WatchDir == "" {
		return ErrNoWatchDir
	}
	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	if c.SpaceID == "" {
		return ErrNoSpaceID
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = defaultPollIntervalMs
	}
	return nil
}

// PollInterval returns the reconciliation interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse %s: %w", path, err)
	}

	cfg.Path = path
	return &cfg, nil
}

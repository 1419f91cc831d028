// Copyright 2024-2026 Aiku AI

package adapter

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the adapter configuration.
type Config struct {
	// Endpoint is the SimplePad backend base URL or host:port.
	Endpoint string `yaml:"endpoint"`
	// Token is the instance token issued by the backend.
	Token string `yaml:"token"`
	// DataDir holds the per-account persistent caches.
	DataDir string `yaml:"data_dir"`

	// HeartbeatInterval is the push channel ping cadence.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	// ReconnectDelay is the pause before redialing a dropped push channel.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	// MaxMissedHeartbeats forces a reconnect after this many consecutive
	// unanswered pings. Defaults to 3, set to -1 to disable the check.
	MaxMissedHeartbeats int `yaml:"max_missed_heartbeats"`

	// ScanPollInterval is how often a pending QR login is polled.
	ScanPollInterval time.Duration `yaml:"scan_poll_interval"`
	// EventBuffer is the channel sink capacity.
	EventBuffer int `yaml:"event_buffer"`
	// MetricsListen exposes Prometheus metrics when set, e.g. ":9434".
	MetricsListen string `yaml:"metrics_listen"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PostProcess applies environment overrides, fills defaults and validates.
func (c *Config) PostProcess() error {
	if env := os.Getenv("SIMPLEPAD_ENDPOINT"); env != "" {
		c.Endpoint = env
	}
	if env := os.Getenv("SIMPLEPAD_TOKEN"); env != "" {
		c.Token = env
	}
	if env := os.Getenv("SIMPLEPAD_DATA_DIR"); env != "" {
		c.DataDir = env
	}

	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.MaxMissedHeartbeats < 0 {
		c.MaxMissedHeartbeats = 0
	} else if c.MaxMissedHeartbeats == 0 {
		c.MaxMissedHeartbeats = 3
	}
	if c.ScanPollInterval <= 0 {
		c.ScanPollInterval = 3 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 512
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

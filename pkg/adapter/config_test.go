// Copyright 2024-2026 Aiku AI

package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{Endpoint: "localhost:8080", Token: "tok"}
	if err := cfg.PostProcess(); err != nil {
		t.Fatal(err)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("heartbeat interval = %v", cfg.HeartbeatInterval)
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Errorf("reconnect delay = %v", cfg.ReconnectDelay)
	}
	if cfg.MaxMissedHeartbeats != 3 {
		t.Errorf("max missed heartbeats = %d", cfg.MaxMissedHeartbeats)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.EventBuffer != 512 {
		t.Errorf("event buffer = %d", cfg.EventBuffer)
	}
}

func TestConfigDisableHeartbeatCheck(t *testing.T) {
	cfg := &Config{Endpoint: "localhost:8080", Token: "tok", MaxMissedHeartbeats: -1}
	if err := cfg.PostProcess(); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxMissedHeartbeats != 0 {
		t.Errorf("max missed heartbeats = %d, want 0 (disabled)", cfg.MaxMissedHeartbeats)
	}
}

func TestConfigValidation(t *testing.T) {
	if err := (&Config{Token: "tok"}).PostProcess(); err == nil {
		t.Error("missing endpoint accepted")
	}
	if err := (&Config{Endpoint: "localhost:8080"}).PostProcess(); err == nil {
		t.Error("missing token accepted")
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("SIMPLEPAD_ENDPOINT", "env-host:9000")
	t.Setenv("SIMPLEPAD_TOKEN", "env-token")
	t.Setenv("SIMPLEPAD_DATA_DIR", "/tmp/env-data")

	cfg := &Config{Endpoint: "file-host:8080", Token: "file-token", DataDir: "./file-data"}
	if err := cfg.PostProcess(); err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "env-host:9000" || cfg.Token != "env-token" || cfg.DataDir != "/tmp/env-data" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "endpoint: localhost:8080\ntoken: tok\nheartbeat_interval: 15s\nreconnect_delay: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Errorf("heartbeat interval = %v", cfg.HeartbeatInterval)
	}
	if cfg.ReconnectDelay != 2*time.Second {
		t.Errorf("reconnect delay = %v", cfg.ReconnectDelay)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

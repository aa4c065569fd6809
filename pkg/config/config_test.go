package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
database:
  host: "db.example.com"
  port: 5433
  user: "testuser"
  database: "testdb"
  ssl_mode: "require"
redis:
  enabled: true
  host: "redis.example.com"
  port: 6380
market_data:
  base_url: "http://localhost:9100/api/v3"
  timeout: 3s
  mock: true
stream:
  url: "ws://localhost:9101/ws"
  reconnect_interval: 1s
portfolio:
  snapshot_interval: 30m
telemetry:
  service_name: "cryptonested-test"
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	defer os.Chdir(origDir)

	cfg, err := Load("config")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %v, want 9000", cfg.Server.Port)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("Database.SSLMode = %v, want require", cfg.Database.SSLMode)
	}
	if !cfg.Redis.Enabled {
		t.Errorf("Redis.Enabled = false, want true")
	}
	if cfg.MarketData.Timeout != 3*time.Second {
		t.Errorf("MarketData.Timeout = %v, want 3s", cfg.MarketData.Timeout)
	}
	if !cfg.MarketData.Mock {
		t.Errorf("MarketData.Mock = false, want true")
	}
	if cfg.Stream.URL != "ws://localhost:9101/ws" {
		t.Errorf("Stream.URL = %v", cfg.Stream.URL)
	}
	if cfg.Portfolio.SnapshotInterval != 30*time.Minute {
		t.Errorf("Portfolio.SnapshotInterval = %v, want 30m", cfg.Portfolio.SnapshotInterval)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	defer os.Chdir(origDir)

	cfg, err := Load("nonexistent")
	if err != nil {
		t.Fatalf("Load() with no config file should fall back to defaults, got %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.MarketData.BaseURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("default MarketData.BaseURL = %v", cfg.MarketData.BaseURL)
	}
	if cfg.MarketData.Timeout != 15*time.Second {
		t.Errorf("default MarketData.Timeout = %v, want 15s", cfg.MarketData.Timeout)
	}
	if cfg.Portfolio.SnapshotInterval != time.Hour {
		t.Errorf("default Portfolio.SnapshotInterval = %v, want 1h", cfg.Portfolio.SnapshotInterval)
	}
}

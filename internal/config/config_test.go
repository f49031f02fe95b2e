package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/signalboard/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

backend:
  base_url: "http://analysis:8000"
  timeout: 5s

signal:
  default_entry_threshold: 0.7

cache:
  enabled: true
  redis_addr: "${SIGNALBOARD_TEST_REDIS}"

watch:
  interval: 1m
  regions:
    - id: main
      symbol: BTCUSDT
      timeframe: 1h
`)

	t.Setenv("SIGNALBOARD_TEST_REDIS", "redis:6379")

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://analysis:8000" {
		t.Errorf("expected base_url from file, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.Backend.Timeout)
	}
	if cfg.Signal.DefaultEntryThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %f", cfg.Signal.DefaultEntryThreshold)
	}
	if cfg.Signal.DefaultMinSupport != 0.3 {
		t.Errorf("expected default min_support 0.3, got %f", cfg.Signal.DefaultMinSupport)
	}
	if cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("expected expanded redis_addr, got %q", cfg.Cache.RedisAddr)
	}
	if len(cfg.Watch.Regions) != 1 || cfg.Watch.Regions[0].Symbol != "BTCUSDT" {
		t.Errorf("expected one watched region, got %+v", cfg.Watch.Regions)
	}
	if cfg.Watch.Interval != time.Minute {
		t.Errorf("expected watch interval 1m, got %s", cfg.Watch.Interval)
	}
	if cfg.Backend.DefaultTimeframe != "15m" {
		t.Errorf("expected default timeframe 15m, got %s", cfg.Backend.DefaultTimeframe)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SIGNALBOARD_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("expected default timeout 15s, got %s", cfg.Backend.Timeout)
	}
	if cfg.Signal.DefaultEntryThreshold != 0.6 {
		t.Errorf("expected default entry threshold 0.6, got %f", cfg.Signal.DefaultEntryThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		c := *Defaults()
		mut(&c)
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid config",
			cfg:  valid(func(*Config) {}),
		},
		{
			name:    "invalid port - zero",
			cfg:     valid(func(c *Config) { c.Server.Port = 0 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "invalid port - too high",
			cfg:     valid(func(c *Config) { c.Server.Port = 70000 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "unknown mode",
			cfg:     valid(func(c *Config) { c.Server.Mode = "turbo" }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "missing backend",
			cfg:     valid(func(c *Config) { c.Backend.BaseURL = "" }),
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "threshold out of range",
			cfg:     valid(func(c *Config) { c.Signal.DefaultEntryThreshold = 1.5 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "negative support",
			cfg:     valid(func(c *Config) { c.Signal.DefaultMinSupport = -0.1 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name: "cache without redis",
			cfg: valid(func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.RedisAddr = ""
			}),
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "cache without ttl",
			cfg: valid(func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.TTL = 0
			}),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "watch region without symbol",
			cfg:     valid(func(c *Config) { c.Watch.Regions = []WatchRegion{{ID: "main"}} }),
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "duplicate watch region",
			cfg: valid(func(c *Config) {
				c.Watch.Regions = []WatchRegion{{ID: "main", Symbol: "BTC"}, {ID: "main", Symbol: "ETH"}}
			}),
			wantErr: core.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

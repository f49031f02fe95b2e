package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/signalboard/internal/core"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Signal  SignalConfig  `mapstructure:"signal"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	UI      UIConfig      `mapstructure:"ui"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // "debug" or "release"
	TemplatesDir string `mapstructure:"templates_dir"`
}

// BackendConfig points at the analysis backend.
type BackendConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	DefaultTimeframe string        `mapstructure:"default_timeframe"`
	DefaultLimit     int           `mapstructure:"default_limit"`
}

// SignalConfig holds the segmentation defaults used when neither the
// request nor the payload carries thresholds.
type SignalConfig struct {
	DefaultEntryThreshold float64 `mapstructure:"default_entry_threshold"`
	DefaultMinSupport     float64 `mapstructure:"default_min_support"`
}

// CacheConfig enables the Redis cache of fetched analysis payloads.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UIConfig holds user-facing texts.
type UIConfig struct {
	ExplainFailedMessage string `mapstructure:"explain_failed_message"`
	ExplainPlaceholder   string `mapstructure:"explain_placeholder"`
}

// WatchConfig lists regions the server keeps refreshed from the backend.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Regions  []WatchRegion `mapstructure:"regions"`
}

// WatchRegion is one region rendered at startup and on every refresh.
type WatchRegion struct {
	ID        string `mapstructure:"id"`
	Symbol    string `mapstructure:"symbol"`
	Timeframe string `mapstructure:"timeframe"`
}

// Load reads configuration from file. Keys missing from the file keep
// their defaults; an empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides, e.g. SIGNALBOARD_BACKEND_BASE_URL
	v.SetEnvPrefix("signalboard")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.templates_dir", d.Server.TemplatesDir)
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.default_timeframe", d.Backend.DefaultTimeframe)
	v.SetDefault("backend.default_limit", d.Backend.DefaultLimit)
	v.SetDefault("signal.default_entry_threshold", d.Signal.DefaultEntryThreshold)
	v.SetDefault("signal.default_min_support", d.Signal.DefaultMinSupport)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("ui.explain_failed_message", d.UI.ExplainFailedMessage)
	v.SetDefault("ui.explain_placeholder", d.UI.ExplainPlaceholder)
	v.SetDefault("watch.interval", d.Watch.Interval)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Backend: BackendConfig{
			BaseURL:          "http://127.0.0.1:8000",
			Timeout:          15 * time.Second,
			DefaultTimeframe: "15m",
			DefaultLimit:     500,
		},
		Signal: SignalConfig{
			DefaultEntryThreshold: 0.6,
			DefaultMinSupport:     0.3,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "127.0.0.1:6379",
			TTL:       30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		UI: UIConfig{
			ExplainFailedMessage: "Failed to fetch the signal explanation",
			ExplainPlaceholder:   "Click a point on the AI Signal panel to see the explanation.",
		},
		Watch: WatchConfig{
			Interval: 5 * time.Minute,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Server.Mode {
	case "", "debug", "release":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("mode must be debug or release, got %q", c.Server.Mode))
	}

	if c.Backend.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("backend base_url required"))
	}
	if c.Backend.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backend timeout cannot be negative, got %s", c.Backend.Timeout))
	}
	if c.Backend.DefaultLimit < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("default_limit cannot be negative, got %d", c.Backend.DefaultLimit))
	}

	if c.Signal.DefaultEntryThreshold < 0 || c.Signal.DefaultEntryThreshold > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("default_entry_threshold must be between 0 and 1, got %f", c.Signal.DefaultEntryThreshold))
	}
	if c.Signal.DefaultMinSupport < 0 || c.Signal.DefaultMinSupport > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("default_min_support must be between 0 and 1, got %f", c.Signal.DefaultMinSupport))
	}

	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis_addr required when cache is enabled"))
		}
		if c.Cache.TTL <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL))
		}
	}

	if c.Watch.Interval < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("watch interval cannot be negative, got %s", c.Watch.Interval))
	}
	seen := make(map[string]bool, len(c.Watch.Regions))
	for i, r := range c.Watch.Regions {
		if r.ID == "" || r.Symbol == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("watch region %d needs id and symbol", i))
		}
		if seen[r.ID] {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("duplicate watch region %q", r.ID))
		}
		seen[r.ID] = true
	}

	return nil
}

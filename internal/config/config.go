package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/forecast"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Analysis   AnalysisConfig             `mapstructure:"analysis"`
	Collectors map[string]CollectorConfig `mapstructure:"collectors"`
	Cache      CacheConfig                `mapstructure:"cache"`
	Archive    ArchiveConfig              `mapstructure:"archive"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
	Notifiers  []NotifierConfig           `mapstructure:"notifiers"`
	Watchlist  []WatchlistItem            `mapstructure:"watchlist"`
	Schedule   string                     `mapstructure:"schedule"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// AnalysisConfig holds the caller-supplied pipeline parameters
type AnalysisConfig struct {
	Thresholds     []float64                `mapstructure:"thresholds"`
	HorizonDays    int                      `mapstructure:"horizon_days"`
	Lookback       string                   `mapstructure:"lookback"`
	ReferencePrice float64                  `mapstructure:"reference_price"` // 0 = last close
	Workers        int                      `mapstructure:"workers"`
	Seasonal       forecast.SeasonalOptions `mapstructure:"seasonal"`
}

type CollectorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
	BaseURL string        `mapstructure:"base_url"`
}

// CacheConfig selects the analysis result cache backend
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory", "redis" or "none"
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// ArchiveConfig selects where analysis bundles are exported
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs", "s3" or "" to disable
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotifierConfig configures one alert sink for dips found on the latest bar
type NotifierConfig struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"` // "webhook"
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

type WatchlistItem struct {
	Symbol string `mapstructure:"symbol"`
	Name   string `mapstructure:"name"`
}

// Load reads configuration from file. A .env file next to it, if present,
// is loaded into the environment first.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
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

// setDefaults mirrors Defaults so partial files keep sane values
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("analysis.thresholds", d.Analysis.Thresholds)
	v.SetDefault("analysis.horizon_days", d.Analysis.HorizonDays)
	v.SetDefault("analysis.lookback", d.Analysis.Lookback)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.seasonal.changepoints", d.Analysis.Seasonal.Changepoints)
	v.SetDefault("analysis.seasonal.changepoint_range", d.Analysis.Seasonal.ChangepointRange)
	v.SetDefault("analysis.seasonal.changepoint_prior_scale", d.Analysis.Seasonal.ChangepointPriorScale)
	v.SetDefault("analysis.seasonal.seasonality_prior_scale", d.Analysis.Seasonal.SeasonalityPriorScale)
	v.SetDefault("analysis.seasonal.weekly_order", d.Analysis.Seasonal.WeeklyOrder)
	v.SetDefault("analysis.seasonal.yearly_order", d.Analysis.Seasonal.YearlyOrder)
	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Analysis: AnalysisConfig{
			Thresholds:  []float64{0.99, 0.98, 0.97, 0.96, 0.95},
			HorizonDays: 365,
			Lookback:    "10y",
			Workers:     4,
			Seasonal:    forecast.DefaultSeasonalOptions(),
		},
		Collectors: map[string]CollectorConfig{
			"yahoo": {Enabled: true, Timeout: 10 * time.Second},
		},
		Cache: CacheConfig{
			Type:       "memory",
			MaxEntries: 64,
			TTL:        6 * time.Hour,
			Redis:      RedisConfig{Prefix: "dipcast"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Watchlist: []WatchlistItem{
			{Symbol: "XLG", Name: "Invesco S&P 500 Top 50"},
			{Symbol: "SPY", Name: "SPDR S&P 500"},
			{Symbol: "QQQ", Name: "Invesco QQQ"},
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if _, err := c.Analysis.Options(); err != nil {
		return err
	}
	if c.Analysis.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Analysis.Workers))
	}

	switch c.Cache.Type {
	case "", "none":
	case "memory":
		if c.Cache.MaxEntries < 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("cache max_entries must be positive, got %d", c.Cache.MaxEntries))
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when cache type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}

	switch c.Archive.Type {
	case "":
	case "localfs":
		if c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when type is localfs"))
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid schedule %q: %w", c.Schedule, err))
		}
	}

	names := make(map[string]struct{}, len(c.Notifiers))
	for i, n := range c.Notifiers {
		if n.Type != "webhook" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifier %d: unknown type %q", i, n.Type))
		}
		if n.URL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("notifier %d: url required", i))
		}
		name := n.Name
		if name == "" {
			name = n.Type
		}
		if _, dup := names[name]; dup {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("duplicate notifier name %q", name))
		}
		names[name] = struct{}{}
	}

	for i, item := range c.Watchlist {
		if item.Symbol == "" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("watchlist entry %d has no symbol", i))
		}
	}

	return nil
}

// Symbols returns the watchlist symbols in order
func (c *Config) Symbols() []string {
	out := make([]string, len(c.Watchlist))
	for i, item := range c.Watchlist {
		out[i] = item.Symbol
	}
	return out
}

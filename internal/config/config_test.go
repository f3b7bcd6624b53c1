package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

analysis:
  thresholds: [0.97, 0.95]
  horizon_days: 180
  lookback: 5y

cache:
  type: redis
  redis:
    addr: "localhost:6379"

archive:
  type: localfs
  path: "/tmp/dipcast/archive"

notifiers:
  - name: ops
    type: webhook
    url: "http://hooks.local/dips"
    headers:
      X-Token: abc

watchlist:
  - symbol: SPY
    name: "SPDR S&P 500"
`)

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
	if cfg.Analysis.HorizonDays != 180 {
		t.Errorf("expected horizon 180, got %d", cfg.Analysis.HorizonDays)
	}
	if len(cfg.Analysis.Thresholds) != 2 || cfg.Analysis.Thresholds[0] != 0.97 {
		t.Errorf("unexpected thresholds %v", cfg.Analysis.Thresholds)
	}
	if cfg.Archive.Type != "localfs" {
		t.Errorf("expected localfs, got %s", cfg.Archive.Type)
	}
	if cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis addr, got %s", cfg.Cache.Redis.Addr)
	}
	// Unset keys fall back to defaults
	if cfg.Analysis.Seasonal.WeeklyOrder != 3 {
		t.Errorf("expected default weekly order 3, got %d", cfg.Analysis.Seasonal.WeeklyOrder)
	}
	if cfg.Cache.TTL != 6*time.Hour {
		t.Errorf("expected default ttl, got %v", cfg.Cache.TTL)
	}
	if len(cfg.Notifiers) != 1 || cfg.Notifiers[0].URL != "http://hooks.local/dips" {
		t.Errorf("unexpected notifiers %+v", cfg.Notifiers)
	}
	if got := cfg.Symbols(); len(got) != 1 || got[0] != "SPY" {
		t.Errorf("unexpected symbols %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_DotEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("DIPCAST_TEST_API_KEY=from-dotenv\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(`
server:
  api_key: "${DIPCAST_TEST_API_KEY}"
`), 0644))
	t.Cleanup(func() { os.Unsetenv("DIPCAST_TEST_API_KEY") })

	cfg, err := Load(filepath.Join(tmpDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []float64{0.99, 0.98, 0.97, 0.96, 0.95}, cfg.Analysis.Thresholds)
	assert.Equal(t, 365, cfg.Analysis.HorizonDays)
	assert.Equal(t, "10y", cfg.Analysis.Lookback)
	assert.Equal(t, []string{"XLG", "SPY", "QQQ"}, cfg.Symbols())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.Error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"empty thresholds", func(c *Config) { c.Analysis.Thresholds = nil }, core.ErrConfigInvalid},
		{"threshold of one", func(c *Config) { c.Analysis.Thresholds = []float64{1} }, core.ErrConfigInvalid},
		{"zero horizon", func(c *Config) { c.Analysis.HorizonDays = 0 }, core.ErrConfigInvalid},
		{"bad lookback", func(c *Config) { c.Analysis.Lookback = "forever" }, core.ErrConfigInvalid},
		{"redis without addr", func(c *Config) { c.Cache.Type = "redis" }, core.ErrConfigMissing},
		{"unknown cache", func(c *Config) { c.Cache.Type = "memcached" }, core.ErrConfigInvalid},
		{"localfs without path", func(c *Config) { c.Archive.Type = "localfs" }, core.ErrConfigMissing},
		{"s3 without bucket", func(c *Config) { c.Archive.Type = "s3" }, core.ErrConfigMissing},
		{"bad schedule", func(c *Config) { c.Schedule = "every day" }, core.ErrConfigInvalid},
		{"good schedule", func(c *Config) { c.Schedule = "30 21 * * 1-5" }, nil},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -1 }, core.ErrConfigInvalid},
		{"negative reference", func(c *Config) { c.Analysis.ReferencePrice = -1 }, core.ErrConfigInvalid},
		{"webhook", func(c *Config) {
			c.Notifiers = []NotifierConfig{{Type: "webhook", URL: "http://hooks.local/a"}}
		}, nil},
		{"webhook without url", func(c *Config) { c.Notifiers = []NotifierConfig{{Type: "webhook"}} }, core.ErrConfigMissing},
		{"unknown notifier", func(c *Config) {
			c.Notifiers = []NotifierConfig{{Type: "pager", URL: "http://x"}}
		}, core.ErrConfigInvalid},
		{"duplicate notifier", func(c *Config) {
			c.Notifiers = []NotifierConfig{
				{Type: "webhook", URL: "http://a"},
				{Type: "webhook", URL: "http://b"},
			}
		}, core.ErrConfigInvalid},
		{"blank symbol", func(c *Config) { c.Watchlist = []WatchlistItem{{Name: "x"}} }, core.ErrConfigInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAnalysisConfig_Options(t *testing.T) {
	opts, err := Defaults().Analysis.Options()
	require.NoError(t, err)

	assert.Len(t, opts.Thresholds, 5)
	assert.Equal(t, core.Threshold(0.99), opts.Thresholds[0])
	assert.Equal(t, 365, opts.HorizonDays)
	assert.Equal(t, core.Lookback{Years: 10}, opts.Lookback)
	assert.Zero(t, opts.ReferencePrice)

	a := Defaults().Analysis
	a.ReferencePrice = 412.5
	opts, err = a.Options()
	require.NoError(t, err)
	assert.Equal(t, 412.5, opts.ReferencePrice)
}

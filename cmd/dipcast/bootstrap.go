package main

import (
	"context"
	"fmt"

	"github.com/newthinker/dipcast/internal/app"
	"github.com/newthinker/dipcast/internal/cache"
	"github.com/newthinker/dipcast/internal/collector"
	"github.com/newthinker/dipcast/internal/collector/yahoo"
	"github.com/newthinker/dipcast/internal/config"
	"github.com/newthinker/dipcast/internal/forecast"
	"github.com/newthinker/dipcast/internal/metrics"
	"github.com/newthinker/dipcast/internal/notifier"
	"github.com/newthinker/dipcast/internal/notifier/webhook"
	"github.com/newthinker/dipcast/internal/pipeline"
	"github.com/newthinker/dipcast/internal/storage/archive"
	"go.uber.org/zap"
)

// loadConfig reads --config or falls back to defaults. Validation is left to
// the caller so flag overrides can be applied first.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// buildApp wires collectors, pipeline, cache, archive, notifiers and metrics
// from cfg.
// The returned registry is nil when metrics are disabled.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app.App, *metrics.Registry, error) {
	opts, err := cfg.Analysis.Options()
	if err != nil {
		return nil, nil, err
	}

	strategies := forecast.NewRegistry(
		forecast.NewTrend(),
		forecast.NewSeasonal(cfg.Analysis.Seasonal),
	)
	p, err := pipeline.New(opts, strategies, log)
	if err != nil {
		return nil, nil, err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		p.SetRecorder(reg)
	}

	a := app.New(p, log)
	a.SetWorkers(cfg.Analysis.Workers)
	if reg != nil {
		a.SetRecorder(reg)
	}

	for name, cc := range cfg.Collectors {
		if !cc.Enabled {
			continue
		}
		var c collector.Collector
		switch name {
		case "yahoo":
			c = yahoo.New()
		default:
			log.Warn("unknown collector, skipping", zap.String("collector", name))
			continue
		}
		if err := c.Init(collector.Config{Timeout: cc.Timeout, BaseURL: cc.BaseURL}); err != nil {
			return nil, nil, fmt.Errorf("init collector %s: %w", name, err)
		}
		a.RegisterCollector(c)
	}

	store, err := cache.New(ctx, cache.Config{
		Type:          cfg.Cache.Type,
		MaxEntries:    cfg.Cache.MaxEntries,
		TTL:           cfg.Cache.TTL,
		RedisAddr:     cfg.Cache.Redis.Addr,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
		RedisPrefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return nil, nil, err
	}
	a.SetCache(store)

	if cfg.Archive.Type != "" {
		backend, err := archive.New(archive.Config{
			Type: cfg.Archive.Type,
			Path: cfg.Archive.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Archive.S3.Bucket,
				Endpoint:  cfg.Archive.S3.Endpoint,
				Region:    cfg.Archive.S3.Region,
				AccessKey: cfg.Archive.S3.AccessKey,
				SecretKey: cfg.Archive.S3.SecretKey,
				Prefix:    cfg.Archive.S3.Prefix,
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening archive: %w", err)
		}
		a.SetExporter(archive.NewExporter(backend))
	}

	if len(cfg.Notifiers) > 0 {
		notifiers := notifier.NewRegistry()
		for _, nc := range cfg.Notifiers {
			w := webhook.New(nc.URL, nc.Headers)
			if err := w.Init(notifier.Config{
				Name:    nc.Name,
				Type:    nc.Type,
				URL:     nc.URL,
				Headers: nc.Headers,
				Timeout: nc.Timeout,
			}); err != nil {
				return nil, nil, err
			}
			if err := notifiers.Register(w); err != nil {
				return nil, nil, err
			}
		}
		a.SetNotifiers(notifiers)
	}

	items := make([]app.WatchlistItem, len(cfg.Watchlist))
	for i, w := range cfg.Watchlist {
		items[i] = app.WatchlistItem{Symbol: w.Symbol, Name: w.Name}
	}
	a.SetWatchlist(items)

	return a, reg, nil
}

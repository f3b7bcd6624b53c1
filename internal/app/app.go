package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/dipcast/internal/cache"
	"github.com/newthinker/dipcast/internal/collector"
	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/notifier"
	"github.com/newthinker/dipcast/internal/pipeline"
	"github.com/newthinker/dipcast/internal/storage/archive"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Refresh triggers
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

// WatchlistItem is a symbol the app refreshes on schedule
type WatchlistItem struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Recorder receives fetch, cache and refresh outcomes; *metrics.Registry implements it
type Recorder interface {
	RecordFetch(collector string, err error)
	RecordCache(hit bool)
	RecordRefresh(trigger string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string, error) {}
func (nopRecorder) RecordCache(bool)          {}
func (nopRecorder) RecordRefresh(string)      {}

// SymbolResult reports one symbol of a refresh
type SymbolResult struct {
	Symbol        string   `json:"symbol"`
	OK            bool     `json:"ok"`
	Error         string   `json:"error,omitempty"`
	Opportunities int      `json:"opportunities"`
	Failed        []string `json:"failed_branches,omitempty"`
	ArchivePath   string   `json:"archive_path,omitempty"`
}

// RunSummary describes a completed refresh
type RunSummary struct {
	RunID     string         `json:"run_id"`
	Trigger   string         `json:"trigger"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Symbols   []SymbolResult `json:"symbols"`
}

// App is the main application orchestrator: it fetches bars, runs the
// pipeline, caches bundles and exports them to the archive.
type App struct {
	logger     *zap.Logger
	collectors *collector.Registry
	pipeline   *pipeline.Pipeline
	cache      cache.Cache
	exporter   *archive.Exporter
	notifiers  *notifier.Registry
	recorder   Recorder
	workers    int

	watchlistItems []WatchlistItem
	watchlistSet   map[string]struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	lastRun *RunSummary
}

// New creates a new App instance around a configured pipeline
func New(p *pipeline.Pipeline, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &App{
		logger:         logger,
		collectors:     collector.NewRegistry(),
		pipeline:       p,
		cache:          cache.Nop{},
		recorder:       nopRecorder{},
		workers:        4,
		watchlistItems: []WatchlistItem{},
		watchlistSet:   make(map[string]struct{}),
	}
}

// RegisterCollector adds a collector to the app
func (a *App) RegisterCollector(c collector.Collector) {
	a.collectors.Register(c)
}

// SetCache replaces the bundle cache
func (a *App) SetCache(c cache.Cache) {
	if c != nil {
		a.cache = c
	}
}

// SetExporter enables archiving of refreshed bundles
func (a *App) SetExporter(e *archive.Exporter) {
	a.exporter = e
}

// SetWorkers bounds how many symbols a refresh fetches and analyzes at once.
// It may be called while refreshes run; they pick the new limit up on start.
func (a *App) SetWorkers(n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.workers = n
	a.mu.Unlock()
	a.pipeline.SetWorkers(n)
}

func (a *App) workerLimit() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.workers
}

// SetNotifiers enables opportunity alerts for scheduled refreshes
func (a *App) SetNotifiers(r *notifier.Registry) {
	a.notifiers = r
}

// SetRecorder attaches a metrics recorder
func (a *App) SetRecorder(r Recorder) {
	if r != nil {
		a.recorder = r
	}
}

// Options returns the analysis options every bundle is computed with
func (a *App) Options() pipeline.Options {
	return a.pipeline.Options()
}

// Analyze returns the bundle for symbol, computing and caching it on a miss.
// Only a failed fetch is an error; branch failures live inside the bundle.
func (a *App) Analyze(ctx context.Context, symbol string) (pipeline.Bundle, error) {
	symbol = normalize(symbol)
	key := cache.NewKey(symbol, a.pipeline.Options())

	b, err := a.cache.Get(ctx, key)
	if err == nil {
		a.recorder.RecordCache(true)
		return b, nil
	}
	a.recorder.RecordCache(false)
	if !core.IsCode(err, core.ErrCacheMiss) {
		a.logger.Warn("cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}

	series, err := a.fetch(ctx, symbol)
	if err != nil {
		return pipeline.Bundle{}, err
	}

	b = a.pipeline.Run(series)
	a.store(ctx, key, b)
	return b, nil
}

// Refresh drops cached bundles for symbols, recomputes them in parallel and
// archives the results under one run ID. Per-symbol failures are reported in
// the summary; only cancellation returns an error.
func (a *App) Refresh(ctx context.Context, symbols []string, trigger string) (RunSummary, error) {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
		Symbols:   make([]SymbolResult, len(symbols)),
	}
	a.recorder.RecordRefresh(trigger)

	log := a.logger.With(zap.String("run_id", summary.RunID), zap.String("trigger", trigger))
	log.Info("refresh starting", zap.Int("symbols", len(symbols)))

	series := make([]core.BarSeries, len(symbols))
	fetchErrs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workerLimit())
	for i, s := range symbols {
		symbol := normalize(s)
		summary.Symbols[i].Symbol = symbol
		g.Go(func() error {
			if err := a.cache.Invalidate(gctx, symbol); err != nil {
				log.Warn("cache invalidate failed", zap.String("symbol", symbol), zap.Error(err))
			}
			series[i], fetchErrs[i] = a.fetch(gctx, symbol)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("refresh %s: %w", summary.RunID, err)
	}

	fetched := make([]core.BarSeries, 0, len(series))
	index := make([]int, 0, len(series))
	for i, err := range fetchErrs {
		if err != nil {
			summary.Symbols[i].Error = err.Error()
			continue
		}
		fetched = append(fetched, series[i])
		index = append(index, i)
	}

	bundles, err := a.pipeline.RunAll(ctx, fetched)
	if err != nil {
		return summary, fmt.Errorf("refresh %s: %w", summary.RunID, err)
	}

	opts := a.pipeline.Options()
	var alerts []notifier.Alert
	for j, b := range bundles {
		res := &summary.Symbols[index[j]]
		res.OK = true
		res.Opportunities = len(b.Opportunities.Records)
		res.Failed = b.Failed()

		a.store(ctx, cache.NewKey(b.Symbol, opts), b)
		if a.exporter != nil {
			path, err := a.exporter.Export(ctx, summary.RunID, b)
			if err != nil {
				log.Warn("archive export failed", zap.String("symbol", b.Symbol), zap.Error(err))
			}
			res.ArchivePath = path
		}
		alerts = append(alerts, notifier.AlertsFor(summary.RunID, b)...)
	}

	if trigger != TriggerManual {
		a.notify(ctx, log, alerts)
	}

	summary.Duration = time.Since(summary.StartedAt)
	a.mu.Lock()
	a.lastRun = &summary
	a.mu.Unlock()

	log.Info("refresh finished",
		zap.Int("ok", len(bundles)),
		zap.Int("failed", len(symbols)-len(bundles)),
		zap.Duration("took", summary.Duration),
	)
	return summary, nil
}

// RefreshWatchlist refreshes every watchlist symbol
func (a *App) RefreshWatchlist(ctx context.Context, trigger string) (RunSummary, error) {
	return a.Refresh(ctx, a.GetWatchlist(), trigger)
}

// Start refreshes the watchlist once, then on every tick of the standard
// five-field cron schedule until ctx is done or Stop is called.
func (a *App) Start(ctx context.Context, schedule string) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { a.scheduledRefresh(ctx, TriggerSchedule) }); err != nil {
		cancel()
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule %q: %w", schedule, err))
	}

	a.logger.Info("dipcast scheduler starting",
		zap.Int("watchlist_count", len(a.GetWatchlist())),
		zap.String("schedule", schedule),
	)

	// Initial run
	a.scheduledRefresh(ctx, TriggerStartup)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	a.logger.Info("dipcast scheduler stopped")
	return ctx.Err()
}

func (a *App) scheduledRefresh(ctx context.Context, trigger string) {
	if _, err := a.RefreshWatchlist(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("scheduled refresh failed", zap.Error(err))
	}
}

// Stop stops the scheduler loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// LastRun returns the summary of the most recent refresh
func (a *App) LastRun() (RunSummary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastRun == nil {
		return RunSummary{}, false
	}
	return *a.lastRun, true
}

// fetch tries each collector in name order until one returns bars
func (a *App) fetch(ctx context.Context, symbol string) (core.BarSeries, error) {
	collectors := a.collectors.GetAll()
	if len(collectors) == 0 {
		return core.BarSeries{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("no collectors available"))
	}

	lookback := a.pipeline.Options().Lookback
	var lastErr error
	for _, c := range collectors {
		series, err := c.FetchDailyBars(ctx, symbol, lookback)
		a.recorder.RecordFetch(c.Name(), err)
		if err == nil && series.Len() > 0 {
			return series, nil
		}
		if err == nil {
			err = core.WrapError(core.ErrNoData, fmt.Errorf("%s returned no bars", c.Name()))
		}
		a.logger.Debug("fetch failed",
			zap.String("symbol", symbol),
			zap.String("collector", c.Name()),
			zap.Error(err),
		)
		lastErr = err
	}
	return core.BarSeries{}, lastErr
}

func (a *App) notify(ctx context.Context, log *zap.Logger, alerts []notifier.Alert) {
	if a.notifiers == nil || len(alerts) == 0 {
		return
	}
	errs := a.notifiers.NotifyAllBatch(ctx, alerts)
	for name, err := range errs {
		log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
	log.Info("alerts sent",
		zap.Int("count", len(alerts)),
		zap.Int("failed_notifiers", len(errs)),
	)
}

func (a *App) store(ctx context.Context, key cache.Key, b pipeline.Bundle) {
	if err := a.cache.Set(ctx, key, b); err != nil {
		a.logger.Warn("cache write failed", zap.String("symbol", key.Symbol), zap.Error(err))
	}
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":    a.running,
		"watchlist":  len(a.watchlistItems),
		"collectors": len(a.collectors.GetAll()),
		"archive":    a.exporter != nil,
		"workers":    a.workers,
	}
	if a.lastRun != nil {
		stats["last_run_id"] = a.lastRun.RunID
		stats["last_run_at"] = a.lastRun.StartedAt
	}
	return stats
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Package pipeline runs dip detection, growth valuation and every forecast
// strategy over a bar series and composes the results into one bundle.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/dip"
	"github.com/newthinker/dipcast/internal/forecast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recorder receives per-branch outcomes; *metrics.Registry implements it
type Recorder interface {
	RecordBranch(branch, status string)
	RecordPipeline(symbol string, opportunities int, duration float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordBranch(string, string)         {}
func (nopRecorder) RecordPipeline(string, int, float64) {}

// Pipeline is safe for concurrent use; it holds no per-run state
type Pipeline struct {
	opts       Options
	strategies *forecast.Registry
	logger     *zap.Logger
	recorder   Recorder
	workers    atomic.Int64
}

// New validates opts and returns a pipeline running the given strategies.
// A nil registry means the default trend and seasonal strategies.
func New(opts Options, strategies *forecast.Registry, logger *zap.Logger) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strategies == nil {
		strategies = forecast.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		opts:       opts,
		strategies: strategies,
		logger:     logger,
		recorder:   nopRecorder{},
	}
	p.workers.Store(4)
	return p, nil
}

// SetRecorder attaches a metrics recorder
func (p *Pipeline) SetRecorder(r Recorder) {
	if r != nil {
		p.recorder = r
	}
}

// SetWorkers bounds how many symbols RunAll processes at once
func (p *Pipeline) SetWorkers(n int) {
	if n > 0 {
		p.workers.Store(int64(n))
	}
}

// Options returns the validated options
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run evaluates every branch independently. A failing branch fills its slot
// with the error and never stops the others.
func (p *Pipeline) Run(series core.BarSeries) Bundle {
	start := time.Now()

	ref := p.referencePrice(series)
	opps := p.runOpportunities(series, ref)

	strategies := p.strategies.GetAll()
	forecasts := make([]ForecastSlot, 0, len(strategies))
	for _, s := range strategies {
		fc, err := s.Fit(series, p.opts.HorizonDays)
		if err != nil {
			p.logger.Warn("forecast failed",
				zap.String("symbol", series.Symbol),
				zap.String("strategy", s.Name()),
				zap.Error(err),
			)
		}
		slot := forecastSlot(s.Name(), fc, err)
		p.recorder.RecordBranch(s.Name(), string(slot.Status))
		forecasts = append(forecasts, slot)
	}

	bundle := Compose(series, ref, opps, forecasts)
	p.recorder.RecordPipeline(series.Symbol, len(opps.Records), time.Since(start).Seconds())

	p.logger.Debug("pipeline finished",
		zap.String("symbol", series.Symbol),
		zap.Int("bars", series.Len()),
		zap.Int("opportunities", len(opps.Records)),
		zap.Strings("failed", bundle.Failed()),
		zap.Duration("took", time.Since(start)),
	)
	return bundle
}

func (p *Pipeline) runOpportunities(series core.BarSeries, ref float64) OpportunitySlot {
	records, err := p.opportunities(series, ref)
	if err != nil {
		p.logger.Warn("dip detection failed",
			zap.String("symbol", series.Symbol),
			zap.Error(err),
		)
	}
	slot := opportunitySlot(records, err)
	p.recorder.RecordBranch("opportunities", string(slot.Status))
	return slot
}

func (p *Pipeline) opportunities(series core.BarSeries, ref float64) ([]core.GrowthRecord, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	opps, err := dip.Detect(series, p.opts.Thresholds)
	if err != nil {
		return nil, err
	}
	if len(opps) == 0 {
		return nil, nil
	}

	return dip.WithGrowth(opps, ref)
}

func (p *Pipeline) referencePrice(series core.BarSeries) float64 {
	if p.opts.ReferencePrice > 0 {
		return p.opts.ReferencePrice
	}
	if last, ok := series.Last(); ok {
		return last.Close
	}
	return 0
}

// RunAll processes independent symbols in parallel. Results keep the input
// order. Only cancellation of ctx is reported as an error.
func (p *Pipeline) RunAll(ctx context.Context, series []core.BarSeries) ([]Bundle, error) {
	results := make([]Bundle, len(series))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(p.workers.Load()))

	for i := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("pipeline %s: %w", series[i].Symbol, err)
			}
			results[i] = p.Run(series[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

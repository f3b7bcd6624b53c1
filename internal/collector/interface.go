package collector

import (
	"context"
	"time"

	"github.com/newthinker/dipcast/internal/core"
)

// Config holds collector configuration
type Config struct {
	Timeout time.Duration
	BaseURL string
}

// Collector fetches daily price history for a symbol.
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchDailyBars returns the validated daily bars covering lookback up to
	// today. A zero lookback means all available history.
	FetchDailyBars(ctx context.Context, symbol string, lookback core.Lookback) (core.BarSeries, error)
}

package notifier

import (
	"context"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
)

// Config holds notifier configuration
type Config struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// Alert announces a dip found on the most recent bar of a refreshed series
type Alert struct {
	RunID  string            `json:"run_id"`
	Symbol string            `json:"symbol"`
	Record core.GrowthRecord `json:"record"`
}

// Notifier defines the interface for opportunity notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send sends a single alert
	Send(ctx context.Context, alert Alert) error

	// SendBatch sends multiple alerts in one message
	SendBatch(ctx context.Context, alerts []Alert) error
}

// AlertsFor returns one alert per growth record dated on the bundle's last
// bar. Older dips were already announced by earlier runs.
func AlertsFor(runID string, b pipeline.Bundle) []Alert {
	last, ok := b.Bars.Last()
	if !ok || b.Opportunities.Status != pipeline.StatusFilled {
		return nil
	}

	var alerts []Alert
	for _, r := range b.Opportunities.Records {
		if r.Date.Equal(last.Date) {
			alerts = append(alerts, Alert{RunID: runID, Symbol: b.Symbol, Record: r})
		}
	}
	return alerts
}

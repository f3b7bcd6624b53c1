package core

import "time"

// OHLCV represents a raw candlestick as returned by a collector
type OHLCV struct {
	Symbol   string
	Interval string // "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Threshold is a fraction of the day's open that defines a buy trigger.
// 0.97 means "buy if the price falls 3% below the open".
type Threshold float64

// Opportunity is a detected dip where the low crossed open*threshold
type Opportunity struct {
	Date      time.Time `json:"date"`
	Symbol    string    `json:"symbol"`
	Threshold Threshold `json:"threshold"`
	BuyPrice  float64   `json:"buy_price"`
	Level     string    `json:"level"`
}

// GrowthRecord is an Opportunity valued at a reference price
type GrowthRecord struct {
	Opportunity
	CurrentValue     float64 `json:"current_value"`
	Growth           float64 `json:"growth"`
	GrowthPercentage float64 `json:"growth_percentage"`
}

// ForecastPoint is one model prediction for a calendar day
type ForecastPoint struct {
	Date           time.Time `json:"date"`
	PredictedClose float64   `json:"predicted_close"`
}

// ForecastSeries is a gap-free daily sequence of predictions that spans
// history (back-cast) and the forecast horizon.
type ForecastSeries struct {
	Model      string          `json:"model"`
	LastActual time.Time       `json:"last_actual"`
	Points     []ForecastPoint `json:"points"`
}

// Len returns the number of points
func (f ForecastSeries) Len() int {
	return len(f.Points)
}

// Future returns the points dated after the last historical bar
func (f ForecastSeries) Future() []ForecastPoint {
	for i, p := range f.Points {
		if p.Date.After(f.LastActual) {
			return f.Points[i:]
		}
	}
	return nil
}

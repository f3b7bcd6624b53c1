package core

import (
	"fmt"
	"time"
)

// Bar is one day's open/high/low/close observation for a symbol.
// Date carries no time-of-day and is always UTC midnight.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
}

// BarSeries is an ascending, de-duplicated sequence of daily bars for one symbol.
// Stages receive it read-only and never mutate Bars.
type BarSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// DateOf strips the time-of-day and timezone from t, keeping its calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day is shorthand for a calendar date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewBarSeries normalizes collector candles into a validated daily series
func NewBarSeries(symbol string, candles []OHLCV) (BarSeries, error) {
	bars := make([]Bar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, Bar{
			Symbol: symbol,
			Date:   DateOf(c.Time),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
		})
	}

	s := BarSeries{Symbol: symbol, Bars: bars}
	if err := s.Validate(); err != nil {
		return BarSeries{}, err
	}
	return s, nil
}

// Validate checks prices are positive and dates strictly ascending.
// The low <= open <= high relationship is not enforced.
func (s BarSeries) Validate() error {
	for i, b := range s.Bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return WrapError(ErrDataInvalid,
				fmt.Errorf("%s %s: non-positive price (o=%g h=%g l=%g c=%g)",
					s.Symbol, b.Date.Format(DateLayout), b.Open, b.High, b.Low, b.Close))
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Date
		switch {
		case b.Date.Equal(prev):
			return WrapError(ErrDataInvalid,
				fmt.Errorf("%s: duplicate date %s", s.Symbol, b.Date.Format(DateLayout)))
		case b.Date.Before(prev):
			return WrapError(ErrDataInvalid,
				fmt.Errorf("%s: dates not ascending at %s", s.Symbol, b.Date.Format(DateLayout)))
		}
	}
	return nil
}

// Len returns the number of bars
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// Dates returns the bar dates in order
func (s BarSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Closes returns the close prices in order
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// DistinctDates counts unique calendar dates
func (s BarSeries) DistinctDates() int {
	seen := make(map[time.Time]struct{}, len(s.Bars))
	for _, b := range s.Bars {
		seen[DateOf(b.Date)] = struct{}{}
	}
	return len(seen)
}

// First returns the earliest bar
func (s BarSeries) First() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// Last returns the most recent bar
func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// DateLayout is the calendar date format used on the wire and in logs
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

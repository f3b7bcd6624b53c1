// Package forecast projects a daily bar series forward with interchangeable
// fitting strategies.
package forecast

import (
	"fmt"
	"time"

	"github.com/newthinker/dipcast/internal/core"
)

// Strategy fits a model on the closes of a bar series and returns a
// gap-free daily ForecastSeries from the first bar through horizonDays past
// the last one. Fitted parameters live only for the duration of one call.
type Strategy interface {
	Name() string
	Fit(series core.BarSeries, horizonDays int) (core.ForecastSeries, error)
}

const secondsPerDay = 24 * 60 * 60

// dayNumber is the ordinal of a calendar date in days since the Unix epoch
func dayNumber(d time.Time) float64 {
	return float64(core.DateOf(d).Unix() / secondsPerDay)
}

// dailyGrid lists every calendar day in [first, last+horizonDays]
func dailyGrid(first, last time.Time, horizonDays int) []time.Time {
	first, end := core.DateOf(first), core.DateOf(last).AddDate(0, 0, horizonDays)
	days := int(end.Sub(first).Hours()/24) + 1

	grid := make([]time.Time, 0, days)
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		grid = append(grid, d)
	}
	return grid
}

// checkInput enforces the preconditions shared by every strategy
func checkInput(series core.BarSeries, horizonDays int) error {
	if horizonDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("horizon must be positive, got %d days", horizonDays))
	}
	if n := series.DistinctDates(); n < 2 {
		return core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s: need at least 2 distinct dates, got %d", series.Symbol, n))
	}
	return series.Validate()
}

package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/stretchr/testify/assert"
)

// makeSeries builds one bar per day from start, skipping weekends when
// weekdaysOnly is set, with close = price(day index since start).
func makeSeries(start time.Time, days int, weekdaysOnly bool, price func(day int, d time.Time) float64) core.BarSeries {
	s := core.BarSeries{Symbol: "TEST"}
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		if weekdaysOnly && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		c := price(i, d)
		s.Bars = append(s.Bars, core.Bar{Symbol: "TEST", Date: d, Open: c, High: c, Low: c, Close: c})
	}
	return s
}

func assertDailyGapFree(points []core.ForecastPoint) (string, bool) {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.Equal(points[i-1].Date.AddDate(0, 0, 1)) {
			return points[i].Date.Format(core.DateLayout), false
		}
	}
	return "", true
}

// assertWeekendsBetweenFridayAndMonday checks that every Saturday and Sunday
// prediction lies between the Friday before and the Monday after it.
func assertWeekendsBetweenFridayAndMonday(t *testing.T, points []core.ForecastPoint) {
	t.Helper()
	var checked int
	for i := 1; i+2 < len(points); i++ {
		if points[i].Date.Weekday() != time.Saturday {
			continue
		}
		fri, mon := points[i-1].PredictedClose, points[i+2].PredictedClose
		lo, hi := math.Min(fri, mon)-1e-9, math.Max(fri, mon)+1e-9
		for _, p := range points[i : i+2] {
			assert.GreaterOrEqual(t, p.PredictedClose, lo, "date %s", p.Date.Format(core.DateLayout))
			assert.LessOrEqual(t, p.PredictedClose, hi, "date %s", p.Date.Format(core.DateLayout))
		}
		checked++
	}
	assert.Positive(t, checked, "no full weekend in range")
}

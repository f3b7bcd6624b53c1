package forecast

import (
	"math"

	"github.com/newthinker/dipcast/internal/core"
	"gonum.org/v1/gonum/stat"
)

// TrendName identifies the linear regression strategy
const TrendName = "linear_regression"

// Trend fits an ordinary least squares line of close on the standardized
// day ordinal.
type Trend struct{}

// NewTrend creates the linear regression strategy
func NewTrend() *Trend {
	return &Trend{}
}

func (t *Trend) Name() string {
	return TrendName
}

// Fit standardizes ordinals with statistics from history only. Future dates
// are transformed with the same scaler so that extending the horizon never
// moves the back-cast.
func (t *Trend) Fit(series core.BarSeries, horizonDays int) (core.ForecastSeries, error) {
	if err := checkInput(series, horizonDays); err != nil {
		return core.ForecastSeries{}, err
	}

	dates := series.Dates()
	x := make([]float64, len(dates))
	for i, d := range dates {
		x[i] = dayNumber(d)
	}

	sc := fitScaler(x)
	xs := make([]float64, len(x))
	for i, v := range x {
		xs[i] = sc.transform(v)
	}

	alpha, beta := stat.LinearRegression(xs, series.Closes(), nil, false)

	first, _ := series.First()
	last, _ := series.Last()
	grid := dailyGrid(first.Date, last.Date, horizonDays)

	points := make([]core.ForecastPoint, len(grid))
	for i, d := range grid {
		points[i] = core.ForecastPoint{
			Date:           d,
			PredictedClose: alpha + beta*sc.transform(dayNumber(d)),
		}
	}

	return core.ForecastSeries{Model: TrendName, LastActual: last.Date, Points: points}, nil
}

// scaler is a zero-mean, unit-variance transform using population variance
type scaler struct {
	mean  float64
	scale float64
}

func fitScaler(x []float64) scaler {
	mean, variance := stat.MeanVariance(x, nil)
	n := float64(len(x))
	std := math.Sqrt(variance * (n - 1) / n)
	if std == 0 {
		std = 1
	}
	return scaler{mean: mean, scale: std}
}

func (s scaler) transform(v float64) float64 {
	return (v - s.mean) / s.scale
}

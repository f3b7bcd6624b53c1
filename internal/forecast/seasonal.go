package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SeasonalName identifies the seasonal decomposition strategy
const SeasonalName = "seasonal_decomposition"

const (
	weeklyPeriod = 7.0
	yearlyPeriod = 365.25

	// History must cover two full cycles before a seasonality is fitted
	minWeeklySpanDays = 2 * 7
	minYearlySpanDays = 2 * 365
)

// SeasonalOptions tunes the additive decomposition
type SeasonalOptions struct {
	Changepoints          int     `mapstructure:"changepoints"`
	ChangepointRange      float64 `mapstructure:"changepoint_range"`
	ChangepointPriorScale float64 `mapstructure:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `mapstructure:"seasonality_prior_scale"`
	WeeklyOrder           int     `mapstructure:"weekly_order"`
	YearlyOrder           int     `mapstructure:"yearly_order"`
}

// DefaultSeasonalOptions returns the usual prior scales and Fourier orders
func DefaultSeasonalOptions() SeasonalOptions {
	return SeasonalOptions{
		Changepoints:          25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		WeeklyOrder:           3,
		YearlyOrder:           10,
	}
}

// Seasonal decomposes closes into a piecewise linear trend plus weekly and
// yearly Fourier seasonality, fitted as a MAP estimate with Gaussian priors.
//
// Observations are event-indexed: changepoints sit at bar positions, not
// calendar positions, so weekends and holidays do not skew them. The fitted
// model is a continuous function of the date and is evaluated on every
// calendar day, which fills the gaps in history. Weekdays that never occur
// in history, typically Saturday and Sunday, are linearly interpolated
// between the nearest weekdays that do.
//
// A constant close series yields a flat forecast at that price.
type Seasonal struct {
	opts SeasonalOptions
}

// NewSeasonal creates the seasonal strategy. Unset prior scales and range fall
// back to defaults; a zero Fourier order disables that seasonality.
func NewSeasonal(opts SeasonalOptions) *Seasonal {
	def := DefaultSeasonalOptions()
	if opts.ChangepointRange <= 0 || opts.ChangepointRange > 1 {
		opts.ChangepointRange = def.ChangepointRange
	}
	if opts.ChangepointPriorScale <= 0 {
		opts.ChangepointPriorScale = def.ChangepointPriorScale
	}
	if opts.SeasonalityPriorScale <= 0 {
		opts.SeasonalityPriorScale = def.SeasonalityPriorScale
	}
	opts.Changepoints = max(opts.Changepoints, 0)
	opts.WeeklyOrder = max(opts.WeeklyOrder, 0)
	opts.YearlyOrder = max(opts.YearlyOrder, 0)
	return &Seasonal{opts: opts}
}

func (s *Seasonal) Name() string {
	return SeasonalName
}

// Fit back-casts every historical day and projects horizonDays forward
func (s *Seasonal) Fit(series core.BarSeries, horizonDays int) (core.ForecastSeries, error) {
	if err := checkInput(series, horizonDays); err != nil {
		return core.ForecastSeries{}, err
	}

	m, err := s.fit(series)
	if err != nil {
		return core.ForecastSeries{}, err
	}

	first, _ := series.First()
	last, _ := series.Last()
	grid := dailyGrid(first.Date, last.Date, horizonDays)

	points := make([]core.ForecastPoint, len(grid))
	for i, d := range grid {
		points[i] = core.ForecastPoint{Date: d, PredictedClose: m.predict(d)}
	}

	return core.ForecastSeries{Model: SeasonalName, LastActual: last.Date, Points: points}, nil
}

// seasonalModel holds the coefficients of one fit. Column layout:
// intercept, slope, changepoint hinges, weekly sin/cos pairs, yearly sin/cos pairs.
type seasonalModel struct {
	start        time.Time
	spanDays     float64
	changepoints []float64
	weeklyOrder  int
	yearlyOrder  int
	yScale       float64
	flat         bool
	coef         []float64
	// observed marks the weekdays that carry at least one bar
	observed [7]bool
}

func (s *Seasonal) fit(series core.BarSeries) (*seasonalModel, error) {
	dates := series.Dates()
	closes := series.Closes()
	n := len(dates)

	first, last := dates[0], dates[n-1]
	m := &seasonalModel{
		start:    first,
		spanDays: last.Sub(first).Hours() / 24,
	}
	for _, d := range dates {
		m.observed[d.Weekday()] = true
	}

	yScale := 0.0
	constant := true
	for _, c := range closes {
		yScale = math.Max(yScale, math.Abs(c))
		if c != closes[0] {
			constant = false
		}
	}
	m.yScale = yScale
	if constant {
		m.flat = true
		m.coef = []float64{1}
		return m, nil
	}

	if m.spanDays >= minWeeklySpanDays {
		m.weeklyOrder = s.opts.WeeklyOrder
	}
	if m.spanDays >= minYearlySpanDays {
		m.yearlyOrder = s.opts.YearlyOrder
	}

	t := make([]float64, n)
	y := make([]float64, n)
	for i := range dates {
		t[i] = m.scaledTime(dates[i])
		y[i] = closes[i] / yScale
	}
	m.changepoints = placeChangepoints(t, s.opts.Changepoints, s.opts.ChangepointRange)

	p := m.width()
	design := mat.NewDense(n, p, nil)
	for i, d := range dates {
		design.SetRow(i, m.features(d))
	}

	// Noise level from a plain line decides how strongly the priors pull
	alpha, beta := stat.LinearRegression(t, y, nil, false)
	var sse float64
	for i := range t {
		r := y[i] - (alpha + beta*t[i])
		sse += r * r
	}
	noise := math.Max(sse/float64(n), 1e-4)

	var lhs mat.Dense
	lhs.Mul(design.T(), design)
	floor := 1e-8 * float64(n)
	for j := 0; j < p; j++ {
		lhs.Set(j, j, lhs.At(j, j)+floor+m.penalty(j, noise, s.opts))
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), mat.NewVecDense(n, y))

	var coef mat.VecDense
	if err := coef.SolveVec(&lhs, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, core.WrapError(core.ErrInsufficientData,
				fmt.Errorf("%s: seasonal fit failed: %w", series.Symbol, err))
		}
	}

	m.coef = make([]float64, p)
	for j := range m.coef {
		m.coef[j] = coef.AtVec(j)
	}
	return m, nil
}

// placeChangepoints spreads candidate trend breaks uniformly over the first
// changepointRange share of the observations.
func placeChangepoints(t []float64, count int, changepointRange float64) []float64 {
	histSize := int(math.Floor(float64(len(t)) * changepointRange))
	if count+1 > histSize {
		count = histSize - 1
	}
	if count <= 0 {
		return nil
	}

	out := make([]float64, 0, count)
	for k := 1; k <= count; k++ {
		idx := int(math.Round(float64(k) * float64(histSize-1) / float64(count)))
		c := t[idx]
		if len(out) > 0 && c <= out[len(out)-1] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *seasonalModel) scaledTime(d time.Time) float64 {
	return d.Sub(m.start).Hours() / 24 / m.spanDays
}

func (m *seasonalModel) width() int {
	return 2 + len(m.changepoints) + 2*m.weeklyOrder + 2*m.yearlyOrder
}

func (m *seasonalModel) features(d time.Time) []float64 {
	t := m.scaledTime(d)
	row := make([]float64, 0, m.width())
	row = append(row, 1, t)
	for _, c := range m.changepoints {
		row = append(row, math.Max(0, t-c))
	}
	row = appendFourier(row, dayNumber(d), weeklyPeriod, m.weeklyOrder)
	row = appendFourier(row, dayNumber(d), yearlyPeriod, m.yearlyOrder)
	return row
}

func appendFourier(row []float64, day, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		x := 2 * math.Pi * float64(k) * day / period
		row = append(row, math.Sin(x), math.Cos(x))
	}
	return row
}

// penalty is the ridge weight noise/prior^2 of column j
func (m *seasonalModel) penalty(j int, noise float64, opts SeasonalOptions) float64 {
	switch {
	case j < 2:
		return 0
	case j < 2+len(m.changepoints):
		return noise / (opts.ChangepointPriorScale * opts.ChangepointPriorScale)
	default:
		return noise / (opts.SeasonalityPriorScale * opts.SeasonalityPriorScale)
	}
}

func (m *seasonalModel) predict(d time.Time) float64 {
	trend, weekly, yearly := m.components(d)
	return trend + weekly + yearly
}

// components evaluates the trend, weekly and yearly parts in price units
func (m *seasonalModel) components(d time.Time) (trend, weekly, yearly float64) {
	if m.flat {
		return m.yScale, 0, 0
	}
	if m.weeklyOrder > 0 && !m.observed[d.Weekday()] {
		return m.bridge(d)
	}
	return m.evaluate(d)
}

// bridge joins the nearest observed weekdays around d with a straight line.
// The weekly terms are unconstrained on weekdays without bars.
func (m *seasonalModel) bridge(d time.Time) (trend, weekly, yearly float64) {
	prev, next := d, d
	for !m.observed[prev.Weekday()] {
		prev = prev.AddDate(0, 0, -1)
	}
	for !m.observed[next.Weekday()] {
		next = next.AddDate(0, 0, 1)
	}
	w := d.Sub(prev).Hours() / next.Sub(prev).Hours()

	pt, pw, py := m.evaluate(prev)
	nt, nw, ny := m.evaluate(next)
	return lerp(pt, nt, w), lerp(pw, nw, w), lerp(py, ny, w)
}

func lerp(a, b, w float64) float64 {
	return a + (b-a)*w
}

func (m *seasonalModel) evaluate(d time.Time) (trend, weekly, yearly float64) {
	row := m.features(d)
	w0 := 2 + len(m.changepoints)
	y0 := w0 + 2*m.weeklyOrder
	for j, v := range row {
		part := v * m.coef[j] * m.yScale
		switch {
		case j < w0:
			trend += part
		case j < y0:
			weekly += part
		default:
			yearly += part
		}
	}
	return trend, weekly, yearly
}

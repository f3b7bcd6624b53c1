package dip

import (
	"math"
	"testing"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultLevels = []core.Threshold{0.99, 0.98, 0.97, 0.96, 0.95}

func TestLabel(t *testing.T) {
	tests := []struct {
		threshold core.Threshold
		expected  string
	}{
		{0.99, "1.0%"},
		{0.98, "2.0%"},
		{0.97, "3.0%"},
		{0.95, "5.0%"},
		{0.925, "7.5%"},
	}

	for _, tc := range tests {
		if got := Label(tc.threshold); got != tc.expected {
			t.Errorf("Label(%v) = %s, want %s", tc.threshold, got, tc.expected)
		}
	}
}

func TestDetect_NoSuppression(t *testing.T) {
	series := core.BarSeries{Symbol: "XLG", Bars: []core.Bar{
		{Symbol: "XLG", Date: core.Day(2024, 1, 2), Open: 100, High: 101, Low: 94, Close: 99},
	}}

	opps, err := Detect(series, defaultLevels)
	require.NoError(t, err)
	require.Len(t, opps, 5)

	want := []float64{99, 98, 97, 96, 95}
	for i, o := range opps {
		assert.InDelta(t, want[i], o.BuyPrice, 1e-9)
		assert.Equal(t, defaultLevels[i], o.Threshold)
		assert.Equal(t, "XLG", o.Symbol)
	}
	assert.Equal(t, "1.0%", opps[0].Level)
	assert.Equal(t, "5.0%", opps[4].Level)
}

func TestDetect_EndToEndScenario(t *testing.T) {
	d1, d2 := core.Day(2024, 1, 2), core.Day(2024, 1, 3)
	series := core.BarSeries{Symbol: "SPY", Bars: []core.Bar{
		{Symbol: "SPY", Date: d1, Open: 100, Low: 96, High: 101, Close: 99},
		{Symbol: "SPY", Date: d2, Open: 99, Low: 97, High: 100, Close: 98},
	}}

	opps, err := Detect(series, []core.Threshold{0.97, 0.95})
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, d1, opps[0].Date)
	assert.InDelta(t, 97.0, opps[0].BuyPrice, 1e-9)
	assert.Equal(t, "3.0%", opps[0].Level)

	records, err := WithGrowth(opps, 98)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 1.0, records[0].Growth, 1e-9)
	assert.InDelta(t, 1.0309, records[0].GrowthPercentage, 1e-3)
}

func TestDetect_Iff(t *testing.T) {
	bars := []core.Bar{
		{Date: core.Day(2024, 1, 1), Open: 50, Low: 49.5, High: 51, Close: 50},
		{Date: core.Day(2024, 1, 2), Open: 50, Low: 48.9, High: 51, Close: 49},
		{Date: core.Day(2024, 1, 3), Open: 80, Low: 81, High: 82, Close: 81},
		{Date: core.Day(2024, 1, 4), Open: 10, Low: 9.6, High: 10, Close: 9.7},
	}
	series := core.BarSeries{Symbol: "QQQ", Bars: bars}

	opps, err := Detect(series, defaultLevels)
	require.NoError(t, err)

	type key struct {
		day int
		t   core.Threshold
	}
	got := make(map[key]bool)
	for _, o := range opps {
		got[key{o.Date.Day(), o.Threshold}] = true
	}

	for _, b := range bars {
		for _, th := range defaultLevels {
			want := b.Low <= b.Open*float64(th)
			assert.Equal(t, want, got[key{b.Date.Day(), th}], "day %d threshold %v", b.Date.Day(), th)
		}
	}
}

func TestDetect_PreservesBarThenThresholdOrder(t *testing.T) {
	series := core.BarSeries{Bars: []core.Bar{
		{Date: core.Day(2024, 1, 1), Open: 100, Low: 97, High: 100, Close: 98},
		{Date: core.Day(2024, 1, 2), Open: 100, Low: 98, High: 100, Close: 99},
	}}

	// Threshold order is caller-defined and kept as given
	opps, err := Detect(series, []core.Threshold{0.97, 0.99, 0.98})
	require.NoError(t, err)
	require.Len(t, opps, 5)

	got := make([]core.Threshold, len(opps))
	for i, o := range opps {
		got[i] = o.Threshold
	}
	assert.Equal(t, []core.Threshold{0.97, 0.99, 0.98, 0.99, 0.98}, got)
	assert.Equal(t, 1, opps[2].Date.Day())
	assert.Equal(t, 2, opps[3].Date.Day())
}

func TestDetect_ZeroOpen(t *testing.T) {
	series := core.BarSeries{Symbol: "XLG", Bars: []core.Bar{
		{Date: core.Day(2024, 1, 1), Open: 100, Low: 90, High: 100, Close: 95},
		{Date: core.Day(2024, 1, 2), Open: 0, Low: 0, High: 1, Close: 1},
	}}

	opps, err := Detect(series, defaultLevels)
	assert.Nil(t, opps)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDataInvalid)
}

func TestDetect_NoMatches(t *testing.T) {
	series := core.BarSeries{Bars: []core.Bar{
		{Date: core.Day(2024, 1, 1), Open: 100, Low: 99.5, High: 101, Close: 100},
	}}

	opps, err := Detect(series, defaultLevels)
	require.NoError(t, err)
	assert.NotNil(t, opps)
	assert.Empty(t, opps)
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name       string
		thresholds []core.Threshold
		wantErr    bool
	}{
		{"defaults", defaultLevels, false},
		{"empty", nil, true},
		{"zero", []core.Threshold{0}, true},
		{"one", []core.Threshold{1}, true},
		{"above one", []core.Threshold{1.2}, true},
		{"duplicate", []core.Threshold{0.97, 0.97}, true},
		{"nan", []core.Threshold{core.Threshold(math.NaN())}, true},
		{"nan among valid", []core.Threshold{0.99, core.Threshold(math.NaN())}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateThresholds(tc.thresholds)
			if tc.wantErr {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

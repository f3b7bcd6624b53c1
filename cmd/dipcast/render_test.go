package main

import (
	"bytes"
	"testing"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle() pipeline.Bundle {
	d1 := core.Day(2024, 3, 1)
	d2 := core.Day(2024, 3, 4)
	return pipeline.Bundle{
		Symbol: "XLG",
		Bars: core.BarSeries{Symbol: "XLG", Bars: []core.Bar{
			{Symbol: "XLG", Date: d1, Open: 100, High: 101, Low: 96, Close: 99},
			{Symbol: "XLG", Date: d2, Open: 99, High: 104, Low: 98, Close: 103},
		}},
		ReferencePrice: 103,
		Opportunities: pipeline.OpportunitySlot{
			Status: pipeline.StatusFilled,
			Records: []core.GrowthRecord{{
				Opportunity: core.Opportunity{
					Date: d1, Symbol: "XLG", Threshold: 0.97, BuyPrice: 97, Level: "L3",
				},
				CurrentValue:     103,
				Growth:           6,
				GrowthPercentage: 6.185567,
			}},
		},
		Forecasts: []pipeline.ForecastSlot{
			{
				Model:  "trend",
				Status: pipeline.StatusFilled,
				Series: &core.ForecastSeries{
					Model:      "trend",
					LastActual: d2,
					Points: []core.ForecastPoint{
						{Date: d1, PredictedClose: 99},
						{Date: d2, PredictedClose: 103},
						{Date: core.Day(2024, 3, 5), PredictedClose: 105.5},
					},
				},
			},
			{
				Model:  "seasonal",
				Status: pipeline.StatusError,
				Error:  &pipeline.BranchError{Code: "INSUFFICIENT_DATA", Message: "not enough data", Cause: "need 2 dates"},
			},
		},
	}
}

func TestRenderBundle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderBundle(&buf, testBundle()))
	out := buf.String()

	assert.Contains(t, out, "=== XLG ===")
	assert.Contains(t, out, "Bars:      2 (last 2024-03-04, close 103.00)")
	assert.Contains(t, out, "Reference: 103.00")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "L3")
	assert.Contains(t, out, "+6.19%")
	assert.Contains(t, out, "2024-03-05")
	assert.Contains(t, out, "105.50")
	assert.Contains(t, out, "not enough data: need 2 dates")
}

func TestRenderBundle_FailedOpportunities(t *testing.T) {
	b := testBundle()
	b.Opportunities = pipeline.OpportunitySlot{
		Status: pipeline.StatusError,
		Error:  &pipeline.BranchError{Code: "DATA_INVALID", Message: "bad data"},
	}

	var buf bytes.Buffer
	require.NoError(t, renderBundle(&buf, b))
	out := buf.String()

	assert.Contains(t, out, "error: bad data")
	assert.NotContains(t, out, "THRESHOLD")
	// forecasts still render
	assert.Contains(t, out, "105.50")
}

func TestRenderBundle_NoOpportunities(t *testing.T) {
	b := testBundle()
	b.Opportunities = pipeline.OpportunitySlot{Status: pipeline.StatusEmpty}

	var buf bytes.Buffer
	require.NoError(t, renderBundle(&buf, b))
	assert.Contains(t, buf.String(), "  none")
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "+1.50", signed(1.5, ""))
	assert.Equal(t, "-2.25%", signed(-2.25, "%"))
	assert.Equal(t, "+0.00", signed(0, ""))
}

func TestParseWindow(t *testing.T) {
	start, end, err := parseWindow("2024-01-01", "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, core.Day(2024, 1, 1), start)
	assert.Equal(t, core.Day(2024, 2, 1), end)

	start, end, err = parseWindow("", "")
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	_, _, err = parseWindow("2024-02-01", "2024-01-01")
	assert.Error(t, err)

	_, _, err = parseWindow("01/02/2024", "")
	assert.Error(t, err)
}

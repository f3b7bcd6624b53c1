package pipeline

import (
	"errors"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/dip"
)

// Status tells a renderer whether a branch produced output
type Status string

const (
	StatusFilled Status = "filled"
	StatusEmpty  Status = "empty"
	StatusError  Status = "error"
)

// BranchError is the serializable form of a branch failure
type BranchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

func newBranchError(err error) *BranchError {
	if err == nil {
		return nil
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		be := &BranchError{Code: coreErr.Code, Message: coreErr.Message}
		if coreErr.Cause != nil {
			be.Cause = coreErr.Cause.Error()
		}
		return be
	}
	return &BranchError{Code: "INTERNAL_ERROR", Message: err.Error()}
}

// err rebuilds a coded error, so errors.Is still matches the core sentinels
// after the bundle went through JSON.
func (e *BranchError) err() error {
	if e == nil {
		return nil
	}
	out := &core.Error{Code: e.Code, Message: e.Message}
	if e.Cause != "" {
		out.Cause = errors.New(e.Cause)
	}
	return out
}

// OpportunitySlot holds the dip detector and growth calculator output
type OpportunitySlot struct {
	Status  Status              `json:"status"`
	Records []core.GrowthRecord `json:"records"`
	Error   *BranchError        `json:"error,omitempty"`
}

// Err returns the branch failure, if any
func (s OpportunitySlot) Err() error {
	return s.Error.err()
}

// ForecastSlot holds one forecast strategy's output
type ForecastSlot struct {
	Model  string               `json:"model"`
	Status Status               `json:"status"`
	Series *core.ForecastSeries `json:"series,omitempty"`
	Error  *BranchError         `json:"error,omitempty"`
}

// Err returns the branch failure, if any
func (s ForecastSlot) Err() error {
	return s.Error.err()
}

func opportunitySlot(records []core.GrowthRecord, err error) OpportunitySlot {
	switch {
	case err != nil:
		return OpportunitySlot{Status: StatusError, Records: []core.GrowthRecord{}, Error: newBranchError(err)}
	case len(records) == 0:
		return OpportunitySlot{Status: StatusEmpty, Records: []core.GrowthRecord{}}
	default:
		return OpportunitySlot{Status: StatusFilled, Records: records}
	}
}

func forecastSlot(model string, series core.ForecastSeries, err error) ForecastSlot {
	switch {
	case err != nil:
		return ForecastSlot{Model: model, Status: StatusError, Error: newBranchError(err)}
	case series.Len() == 0:
		return ForecastSlot{Model: model, Status: StatusEmpty}
	default:
		return ForecastSlot{Model: model, Status: StatusFilled, Series: &series}
	}
}

// Bundle associates everything a renderer needs for one symbol. It is
// read-only once composed.
type Bundle struct {
	Symbol         string          `json:"symbol"`
	Bars           core.BarSeries  `json:"bars"`
	ReferencePrice float64         `json:"reference_price"`
	Opportunities  OpportunitySlot `json:"opportunities"`
	Forecasts      []ForecastSlot  `json:"forecasts"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Compose merges the branch outputs into a bundle without further computation
func Compose(series core.BarSeries, referencePrice float64, opps OpportunitySlot, forecasts []ForecastSlot) Bundle {
	return Bundle{
		Symbol:         series.Symbol,
		Bars:           series,
		ReferencePrice: referencePrice,
		Opportunities:  opps,
		Forecasts:      forecasts,
		GeneratedAt:    time.Now().UTC(),
	}
}

// Forecast looks up a forecast slot by model name
func (b Bundle) Forecast(model string) (ForecastSlot, bool) {
	for _, f := range b.Forecasts {
		if f.Model == model {
			return f, true
		}
	}
	return ForecastSlot{}, false
}

// RecordsBetween narrows the growth records to [start, end] inclusive,
// leaving the bundle untouched.
func (b Bundle) RecordsBetween(start, end time.Time) []core.GrowthRecord {
	return dip.FilterByDateRange(b.Opportunities.Records, start, end)
}

// Failed lists the branches that ended in error
func (b Bundle) Failed() []string {
	var out []string
	if b.Opportunities.Status == StatusError {
		out = append(out, "opportunities")
	}
	for _, f := range b.Forecasts {
		if f.Status == StatusError {
			out = append(out, f.Model)
		}
	}
	return out
}

// internal/api/handler/api/analysis.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/dipcast/internal/api/response"
	"github.com/newthinker/dipcast/internal/app"
	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
)

// AnalysisApp defines the interface needed from app.App.
type AnalysisApp interface {
	Analyze(ctx context.Context, symbol string) (pipeline.Bundle, error)
	Refresh(ctx context.Context, symbols []string, trigger string) (app.RunSummary, error)
	RefreshWatchlist(ctx context.Context, trigger string) (app.RunSummary, error)
	LastRun() (app.RunSummary, bool)
}

// AnalysisHandler serves bundles and triggers refreshes.
type AnalysisHandler struct {
	app AnalysisApp
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(app AnalysisApp) *AnalysisHandler {
	return &AnalysisHandler{app: app}
}

// DateRange echoes the applied record filter; zero bounds are open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// AnalysisResponse is a bundle whose growth records may be narrowed to a range.
type AnalysisResponse struct {
	pipeline.Bundle
	Range DateRange `json:"range"`
}

// OpportunitiesResponse is the growth table for one symbol.
type OpportunitiesResponse struct {
	Symbol         string                `json:"symbol"`
	ReferencePrice float64               `json:"reference_price"`
	Status         pipeline.Status       `json:"status"`
	Error          *pipeline.BranchError `json:"error,omitempty"`
	Records        []core.GrowthRecord   `json:"records"`
	Count          int                   `json:"count"`
	Range          DateRange             `json:"range"`
}

// RefreshRequest optionally names the symbols to refresh; empty means the watchlist.
type RefreshRequest struct {
	Symbols []string `json:"symbols"`
}

// Get returns the full bundle for {symbol}, narrowing growth records to
// ?start=YYYY-MM-DD&end=YYYY-MM-DD when given.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	b, err := h.app.Analyze(r.Context(), r.PathValue("symbol"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	// b is a copy; reassigning Records leaves the cached bundle intact
	b.Opportunities.Records = b.RecordsBetween(start, end)
	response.JSON(w, http.StatusOK, AnalysisResponse{Bundle: b, Range: echoRange(start, end)})
}

// Opportunities returns only the growth table for {symbol}.
func (h *AnalysisHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	b, err := h.app.Analyze(r.Context(), r.PathValue("symbol"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	records := b.RecordsBetween(start, end)
	response.JSON(w, http.StatusOK, OpportunitiesResponse{
		Symbol:         b.Symbol,
		ReferencePrice: b.ReferencePrice,
		Status:         b.Opportunities.Status,
		Error:          b.Opportunities.Error,
		Records:        records,
		Count:          len(records),
		Range:          echoRange(start, end),
	})
}

// Forecast returns one model's slot for {symbol}.
func (h *AnalysisHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Analyze(r.Context(), r.PathValue("symbol"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	model := r.PathValue("model")
	slot, ok := b.Forecast(model)
	if !ok {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrNoData, fmt.Errorf("unknown forecast model: %s", model)))
		return
	}
	response.JSON(w, http.StatusOK, slot)
}

// Refresh recomputes the requested symbols, or the watchlist, and returns the run summary.
func (h *AnalysisHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}

	var (
		summary app.RunSummary
		err     error
	)
	if len(req.Symbols) == 0 {
		summary, err = h.app.RefreshWatchlist(r.Context(), app.TriggerManual)
	} else {
		summary, err = h.app.Refresh(r.Context(), req.Symbols, app.TriggerManual)
	}
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

// LastRun returns the most recent refresh summary.
func (h *AnalysisHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.app.LastRun()
	if !ok {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNoData, errors.New("no refresh has run yet")))
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func parseRange(r *http.Request) (start, end time.Time, err error) {
	q := r.URL.Query()
	if s := q.Get("start"); s != "" {
		if start, err = core.ParseDate(s); err != nil {
			return start, end, core.WrapError(core.ErrBadRequest, fmt.Errorf("start: %w", err))
		}
	}
	if s := q.Get("end"); s != "" {
		if end, err = core.ParseDate(s); err != nil {
			return start, end, core.WrapError(core.ErrBadRequest, fmt.Errorf("end: %w", err))
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return start, end, core.WrapError(core.ErrBadRequest,
			fmt.Errorf("start %s is after end %s", start.Format(core.DateLayout), end.Format(core.DateLayout)))
	}
	return start, end, nil
}

func echoRange(start, end time.Time) DateRange {
	var dr DateRange
	if !start.IsZero() {
		dr.Start = &start
	}
	if !end.IsZero() {
		dr.End = &end
	}
	return dr
}

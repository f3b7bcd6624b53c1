package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
)

// renderBundle prints one bundle as plain text: a header, the growth table
// and a summary line per forecast model. Failed branches print their error
// in place so the rest of the bundle still shows.
func renderBundle(out io.Writer, b pipeline.Bundle) error {
	fmt.Fprintf(out, "=== %s ===\n", b.Symbol)
	if last, ok := b.Bars.Last(); ok {
		fmt.Fprintf(out, "Bars:      %d (last %s, close %.2f)\n",
			b.Bars.Len(), last.Date.Format(core.DateLayout), last.Close)
	}
	fmt.Fprintf(out, "Reference: %.2f\n\n", b.ReferencePrice)

	fmt.Fprintln(out, "Opportunities")
	switch b.Opportunities.Status {
	case pipeline.StatusError:
		fmt.Fprintf(out, "  error: %s\n", branchMessage(b.Opportunities.Error))
	default:
		if len(b.Opportunities.Records) == 0 {
			fmt.Fprintln(out, "  none")
			break
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tLEVEL\tTHRESHOLD\tBUY\tGROWTH\tGROWTH%\t")
		fmt.Fprintln(w, "----\t-----\t---------\t---\t------\t-------\t")
		for _, r := range b.Opportunities.Records {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\t%s\t\n",
				r.Date.Format(core.DateLayout), r.Level, float64(r.Threshold), r.BuyPrice,
				signed(r.Growth, ""), signed(r.GrowthPercentage, "%"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Forecasts")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSTATUS\tHORIZON END\tPREDICTED\t")
	for _, f := range b.Forecasts {
		switch {
		case f.Status == pipeline.StatusError:
			fmt.Fprintf(w, "%s\terror\t%s\t\t\n", f.Model, branchMessage(f.Error))
		case f.Series == nil || len(f.Series.Future()) == 0:
			fmt.Fprintf(w, "%s\t%s\t-\t-\t\n", f.Model, f.Status)
		default:
			future := f.Series.Future()
			end := future[len(future)-1]
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t\n",
				f.Model, f.Status, end.Date.Format(core.DateLayout), end.PredictedClose)
		}
	}
	return w.Flush()
}

func branchMessage(e *pipeline.BranchError) string {
	if e == nil {
		return "unknown"
	}
	if e.Cause != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func signed(v float64, suffix string) string {
	sign := ""
	if v >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%s", sign, v, suffix)
}

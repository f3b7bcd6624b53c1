package dip

import (
	"time"

	"github.com/newthinker/dipcast/internal/core"
)

// FilterByDateRange returns the records dated within [start, end].
// A zero bound is open. The input slice is never modified.
func FilterByDateRange(records []core.GrowthRecord, start, end time.Time) []core.GrowthRecord {
	if !start.IsZero() {
		start = core.DateOf(start)
	}
	if !end.IsZero() {
		end = core.DateOf(end)
	}

	out := make([]core.GrowthRecord, 0, len(records))
	for _, r := range records {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Package dip finds buy-on-dip opportunities in a daily bar series and
// values them against a reference price.
package dip

import (
	"fmt"
	"math"

	"github.com/newthinker/dipcast/internal/core"
)

// Label formats the percentage drop a threshold represents, e.g. 0.97 -> "3.0%"
func Label(t core.Threshold) string {
	return fmt.Sprintf("%.1f%%", (1-float64(t))*100)
}

// Detect emits one Opportunity for every (bar, threshold) pair where the
// bar's low reached open*threshold. A deep dip satisfies every shallower
// threshold too and each of them gets its own row. Output keeps bar order,
// then threshold order within a bar.
func Detect(series core.BarSeries, thresholds []core.Threshold) ([]core.Opportunity, error) {
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}

	var b builder
	for _, bar := range series.Bars {
		// open <= 0 would make every non-negative low a match
		if bar.Open <= 0 {
			return nil, core.WrapError(core.ErrDataInvalid,
				fmt.Errorf("%s %s: open must be positive, got %g",
					series.Symbol, bar.Date.Format(core.DateLayout), bar.Open))
		}

		for _, t := range thresholds {
			target := bar.Open * float64(t)
			if bar.Low <= target {
				b.add(bar, t, target)
			}
		}
	}

	return b.result(), nil
}

// ValidateThresholds checks the set is non-empty, distinct and inside (0, 1)
func ValidateThresholds(thresholds []core.Threshold) error {
	if len(thresholds) == 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("threshold set is empty"))
	}

	seen := make(map[core.Threshold]struct{}, len(thresholds))
	for _, t := range thresholds {
		if math.IsNaN(float64(t)) || t <= 0 || t >= 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("threshold must be in (0, 1), got %g", float64(t)))
		}
		if _, dup := seen[t]; dup {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("duplicate threshold %g", float64(t)))
		}
		seen[t] = struct{}{}
	}
	return nil
}

// builder accumulates opportunities in detection order
type builder struct {
	out []core.Opportunity
}

func (b *builder) add(bar core.Bar, t core.Threshold, price float64) {
	b.out = append(b.out, core.Opportunity{
		Date:      bar.Date,
		Symbol:    bar.Symbol,
		Threshold: t,
		BuyPrice:  price,
		Level:     Label(t),
	})
}

func (b *builder) result() []core.Opportunity {
	if b.out == nil {
		return []core.Opportunity{}
	}
	return b.out
}

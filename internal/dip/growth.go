package dip

import (
	"fmt"

	"github.com/newthinker/dipcast/internal/core"
)

// WithGrowth values every opportunity at the same reference price, i.e.
// "what the position is worth if closed today".
func WithGrowth(opps []core.Opportunity, referencePrice float64) ([]core.GrowthRecord, error) {
	if referencePrice <= 0 {
		return nil, core.WrapError(core.ErrDataInvalid,
			fmt.Errorf("reference price must be positive, got %g", referencePrice))
	}

	records := make([]core.GrowthRecord, 0, len(opps))
	for _, o := range opps {
		if o.BuyPrice == 0 {
			return nil, core.WrapError(core.ErrDataInvalid,
				fmt.Errorf("%s %s: buy price is zero", o.Symbol, o.Date.Format(core.DateLayout)))
		}

		growth := referencePrice - o.BuyPrice
		records = append(records, core.GrowthRecord{
			Opportunity:      o,
			CurrentValue:     referencePrice,
			Growth:           growth,
			GrowthPercentage: growth / o.BuyPrice * 100,
		})
	}
	return records, nil
}

package pipeline

import (
	"fmt"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/dip"
)

// Options are the caller-supplied analysis parameters
type Options struct {
	Thresholds  []core.Threshold
	HorizonDays int
	Lookback    core.Lookback

	// ReferencePrice values growth records; zero means the last close
	ReferencePrice float64
}

// Validate rejects options before any computation starts
func (o Options) Validate() error {
	if err := dip.ValidateThresholds(o.Thresholds); err != nil {
		return err
	}
	if o.HorizonDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("horizon_days must be positive, got %d", o.HorizonDays))
	}
	if o.ReferencePrice < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("reference price cannot be negative, got %g", o.ReferencePrice))
	}
	return nil
}

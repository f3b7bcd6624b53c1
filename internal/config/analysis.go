package config

import (
	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
)

// Options converts the analysis section to validated pipeline options.
// Every violation is a CONFIG_INVALID error.
func (a AnalysisConfig) Options() (pipeline.Options, error) {
	thresholds := make([]core.Threshold, len(a.Thresholds))
	for i, t := range a.Thresholds {
		thresholds[i] = core.Threshold(t)
	}

	lookback, err := core.ParseLookback(a.Lookback)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Thresholds:     thresholds,
		HorizonDays:    a.HorizonDays,
		Lookback:       lookback,
		ReferencePrice: a.ReferencePrice,
	}
	if err := opts.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/dipcast/internal/app"
	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/logger"
	"github.com/newthinker/dipcast/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeJSON       bool
	analyzeStart      string
	analyzeEnd        string
	analyzeHorizon    int
	analyzeLookback   string
	analyzeThresholds []float64
	analyzeReference  float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol...]",
	Short: "Analyze symbols once and print the results",
	Long: `Fetch daily bars for each symbol, detect buy-on-dip opportunities, value
them at the reference price and run every forecast model. Symbols default to
the configured watchlist.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print bundles as JSON")
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "only show opportunities on or after YYYY-MM-DD")
	analyzeCmd.Flags().StringVar(&analyzeEnd, "end", "", "only show opportunities on or before YYYY-MM-DD")
	analyzeCmd.Flags().IntVar(&analyzeHorizon, "horizon", 0, "forecast horizon in days")
	analyzeCmd.Flags().StringVar(&analyzeLookback, "lookback", "", "history to fetch, e.g. 10y, 18mo, max")
	analyzeCmd.Flags().Float64SliceVar(&analyzeThresholds, "thresholds", nil, "dip thresholds, e.g. 0.99,0.97")
	analyzeCmd.Flags().Float64Var(&analyzeReference, "reference", 0, "reference price for growth (default last close)")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logger.Config{Development: debug, Level: logLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("horizon") {
		cfg.Analysis.HorizonDays = analyzeHorizon
	}
	if analyzeLookback != "" {
		cfg.Analysis.Lookback = analyzeLookback
	}
	if len(analyzeThresholds) > 0 {
		cfg.Analysis.Thresholds = analyzeThresholds
	}
	if cmd.Flags().Changed("reference") {
		cfg.Analysis.ReferencePrice = analyzeReference
	}

	// Analyze re-reads what Refresh just computed, so a cache is required
	if cfg.Cache.Type == "" || cfg.Cache.Type == "none" {
		cfg.Cache.Type = "memory"
		cfg.Cache.TTL = 0
	}
	if cfg.Cache.Type == "memory" && cfg.Cache.MaxEntries < 1 {
		cfg.Cache.MaxEntries = 64
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	start, end, err := parseWindow(analyzeStart, analyzeEnd)
	if err != nil {
		return err
	}

	symbols := args
	if len(symbols) == 0 {
		symbols = cfg.Symbols()
	}
	if len(symbols) == 0 {
		return errors.New("no symbols given and watchlist is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, _, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	summary, err := a.Refresh(ctx, symbols, app.TriggerManual)
	if err != nil {
		return err
	}

	var bundles []pipeline.Bundle
	for _, res := range summary.Symbols {
		if !res.OK {
			fmt.Fprintf(os.Stderr, "%s: %s\n", res.Symbol, res.Error)
			continue
		}
		b, err := a.Analyze(ctx, res.Symbol)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Symbol, err)
			continue
		}
		b.Opportunities.Records = b.RecordsBetween(start, end)
		bundles = append(bundles, b)
	}

	log.Info("analysis finished",
		zap.String("run_id", summary.RunID),
		zap.Int("requested", len(symbols)),
		zap.Int("succeeded", len(bundles)),
	)

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(bundles); err != nil {
			return err
		}
	} else {
		for i, b := range bundles {
			if i > 0 {
				fmt.Println()
			}
			if err := renderBundle(os.Stdout, b); err != nil {
				return err
			}
		}
	}

	if len(bundles) == 0 {
		return fmt.Errorf("all %d symbols failed", len(symbols))
	}
	return nil
}

// parseWindow turns the optional --start/--end flags into a date window.
// Missing bounds are left zero and treated as open.
func parseWindow(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if startStr != "" {
		if start, err = core.ParseDate(startStr); err != nil {
			return start, end, fmt.Errorf("invalid start date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if endStr != "" {
		if end, err = core.ParseDate(endStr); err != nil {
			return start, end, fmt.Errorf("invalid end date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, errors.New("end date must not be before start date")
	}
	return start, end, nil
}

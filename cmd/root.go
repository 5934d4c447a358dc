// Package cmd implements the rentroll CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/pipeline"
	"github.com/theirongolddev/rentroll/internal/source"
	"github.com/theirongolddev/rentroll/internal/store"
)

var (
	flagSource  string
	flagNoCache bool
	flagQuiet   bool
	flagRate    float64
)

var rootCmd = &cobra.Command{
	Use:   "rentroll",
	Short: "Rental ledger billing CLI",
	Long:  "Bill rental units from a shared ledger sheet: utility usage, rent due, payment status and tenant notices.",

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Set here: runSummary reaches loadConfig, which reads rootCmd's flags.
	rootCmd.RunE = runSummary

	rootCmd.PersistentFlags().StringVarP(&flagSource, "source", "s", "", "Ledger CSV URL or local .csv/.xlsx path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the snapshot cache and always fetch")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().Float64Var(&flagRate, "rate", 0, "Utility rate per unit (overrides config)")
}

// loadConfig reads .env, the config file and environment, then applies
// command-line overrides.
func loadConfig() (config.Config, error) {
	if err := config.LoadEnv(); err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if flagSource != "" {
		if strings.HasPrefix(flagSource, "http://") || strings.HasPrefix(flagSource, "https://") {
			cfg.Source.Kind = config.SourceCSVURL
			cfg.Source.URL = flagSource
		} else {
			cfg.Source.Kind = config.SourceFile
			cfg.Source.Path = flagSource
		}
	}
	if rootCmd.PersistentFlags().Changed("rate") {
		cfg.Billing.Rate = flagRate
		cfg.Billing.RateHistory = nil
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config (%s):\n%w", config.Path(), err)
	}
	return cfg, nil
}

// newLoader builds the refresh pipeline for cfg. The returned close function
// releases the snapshot cache.
func newLoader(cfg config.Config, useCache bool) (*pipeline.Loader, func(), error) {
	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, nil, err
	}

	l := &pipeline.Loader{
		Source:     src,
		Normalizer: pipeline.NewNormalizerFromConfig(cfg),
		TTL:        cfg.Source.CacheTTL.Duration,
	}
	closeFn := func() {}

	if useCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			// Cache open failed; fetch directly
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, fetching directly\n")
			}
		} else {
			l.Cache = cache
			closeFn = func() { _ = cache.Close() }
		}
	}
	return l, closeFn, nil
}

// loadLedger is the shared data loading path used by all commands. A source
// failure is reported in the result, not as an error.
func loadLedger(ctx context.Context, cfg config.Config) (*pipeline.LoadResult, error) {
	l, closeFn, err := newLoader(cfg, !flagNoCache)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Fetching ledger...\n")
	}

	start := time.Now()
	res := l.Load(ctx)

	if !flagQuiet {
		switch {
		case res.Err != nil:
			fmt.Fprintf(os.Stderr, "  %s\n", cli.RenderWarning(res.Err.Error()))
		case res.FromCache:
			fmt.Fprintf(os.Stderr, "  Loaded %s units from cache (%s)\n",
				cli.FormatNumber(int64(len(res.Latest))), cli.FormatAge(res.FetchedAt, time.Now()))
		default:
			fmt.Fprintf(os.Stderr, "  Fetched %s rows, %s units in %s\n",
				cli.FormatNumber(int64(len(res.Records))),
				cli.FormatNumber(int64(len(res.Latest))),
				time.Since(start).Round(time.Millisecond))
		}
		if res.Dropped > 0 {
			fmt.Fprintf(os.Stderr, "  %d rows without a unit id were skipped\n", res.Dropped)
		}
	}
	return res, nil
}

// requireLedger is loadLedger for commands that cannot work without data.
func requireLedger(ctx context.Context, cfg config.Config) (*pipeline.LoadResult, error) {
	res, err := loadLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res, nil
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}

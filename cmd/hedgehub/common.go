package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/config"
	"github.com/sawpanic/hedgehub/internal/normalize"
	"github.com/sawpanic/hedgehub/internal/providers"
)

// loadConfig reads --config and applies the data-source and analysis flags
// that were explicitly set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Provider.Kind = config.ProviderCSV
		cfg.Provider.CSVDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("base-url") {
		cfg.Provider.Kind = config.ProviderHTTP
		cfg.Provider.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Lookup("entry-z") != nil {
		a := &cfg.Analysis
		if flags.Changed("entry-z") {
			a.EntryZ, _ = flags.GetFloat64("entry-z")
		}
		if flags.Changed("exit-z") {
			a.ExitZ, _ = flags.GetFloat64("exit-z")
		}
		if flags.Changed("capital") {
			a.InitialCapital, _ = flags.GetFloat64("capital")
		}
		if flags.Changed("shares") {
			a.SharesPerTrade, _ = flags.GetFloat64("shares")
		}
		if flags.Changed("stop-loss") {
			a.StopLossFraction, _ = flags.GetFloat64("stop-loss")
		}
		if flags.Changed("max-holding") {
			a.MaxHoldingPeriods, _ = flags.GetInt("max-holding")
		}
		if flags.Changed("rolling-window") {
			a.ZScoreMode = normalize.ModeRolling
			a.ZScoreWindow, _ = flags.GetInt("rolling-window")
		}
		if flags.Changed("adaptive") {
			a.AdaptiveThreshold, _ = flags.GetBool("adaptive")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// addSourceFlags registers the flags that select where prices come from
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", "", "Directory of <TICKER>.csv files (overrides config)")
	cmd.Flags().String("base-url", "", "HTTP history endpoint (overrides config)")
	cmd.Flags().String("from", "", "First date to load (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last date to load (YYYY-MM-DD)")
	cmd.Flags().Duration("timeout", 60*time.Second, "Overall deadline")
}

// addAnalysisFlags registers per-run strategy overrides
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("entry-z", 2.0, "Entry z-score band")
	cmd.Flags().Float64("exit-z", 0.5, "Exit z-score band")
	cmd.Flags().Float64("capital", 100000, "Initial capital")
	cmd.Flags().Float64("shares", 0, "Fixed shares of A per trade (0 sizes by allocation)")
	cmd.Flags().Float64("stop-loss", 0.05, "Stop loss as a fraction of capital at entry")
	cmd.Flags().Int("max-holding", 0, "Holding cap in bars (0 derives it from the half-life)")
	cmd.Flags().Int("rolling-window", 0, "Use rolling z-scores over this many bars")
	cmd.Flags().Bool("adaptive", false, "Scale the entry band with the volatility index")
}

// buildProvider wires the configured source, optionally behind the redis cache
func buildProvider(cfg config.ProviderConfig, logger zerolog.Logger) (providers.PriceProvider, error) {
	var p providers.PriceProvider
	switch cfg.Kind {
	case config.ProviderHTTP:
		hp, err := providers.NewHTTPProvider(providers.HTTPConfig{
			BaseURL:          cfg.BaseURL,
			UserAgent:        cfg.UserAgent,
			Timeout:          cfg.RequestTimeout(),
			RPS:              cfg.RPS,
			Burst:            cfg.Burst,
			FailureThreshold: cfg.Circuit.FailureThreshold,
			HalfOpenRequests: cfg.Circuit.HalfOpenRequests,
			OpenTimeout:      cfg.Circuit.OpenTimeout(),
		}, logger)
		if err != nil {
			return nil, err
		}
		p = hp
	default:
		p = providers.NewCSVProvider(cfg.CSVDir, logger)
	}

	if cfg.Cache.Enabled {
		client := providers.NewRedisClient(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		p = providers.NewCachedProvider(p, client, cfg.Cache.TTL(), cfg.Cache.Prefix, logger)
	}
	return p, nil
}

// loadRequest fetches both legs (and the index when the adaptive band is on)
func loadRequest(ctx context.Context, cmd *cobra.Command, cfg *config.Config, tickerA, tickerB string) (analysis.Request, error) {
	from, err := flagDate(cmd, "from")
	if err != nil {
		return analysis.Request{}, err
	}
	to, err := flagDate(cmd, "to")
	if err != nil {
		return analysis.Request{}, err
	}

	provider, err := buildProvider(cfg.Provider, log.Logger)
	if err != nil {
		return analysis.Request{}, err
	}
	volTicker := ""
	if cfg.Analysis.AdaptiveThreshold {
		volTicker = cfg.Provider.VolatilityTicker
	}

	hist, err := providers.FetchPair(ctx, provider, tickerA, tickerB, volTicker, from, to, log.Logger)
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{
		TickerA:    tickerA,
		TickerB:    tickerB,
		PricesA:    hist.A,
		PricesB:    hist.B,
		Volatility: hist.Volatility,
		Config:     cfg.Analysis,
	}, nil
}

func flagDate(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", name, s)
	}
	return t, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return context.WithTimeout(cmd.Context(), timeout)
}

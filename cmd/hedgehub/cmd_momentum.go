package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/series"
)

func newMomentumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "momentum TICKER_A TICKER_B",
		Short: "Read the A/B price ratio against its own breakout quantiles",
		Args:  cobra.ExactArgs(2),
		RunE:  runMomentum,
	}
	addSourceFlags(cmd)
	cmd.Flags().Float64("high", 0.9, "Upper breakout quantile")
	cmd.Flags().Float64("low", 0.1, "Lower breakout quantile")
	return cmd
}

func runMomentum(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Analysis.AdaptiveThreshold = false

	ctx, cancel := commandContext(cmd)
	defer cancel()
	req, err := loadRequest(ctx, cmd, cfg, strings.ToUpper(args[0]), strings.ToUpper(args[1]))
	if err != nil {
		return err
	}
	aligned, err := series.Align(req.TickerA, req.PricesA, req.TickerB, req.PricesB)
	if err != nil {
		return err
	}

	high, _ := cmd.Flags().GetFloat64("high")
	low, _ := cmd.Flags().GetFloat64("low")
	res, err := analysis.Momentum(aligned, high, low)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ratio %s/%s: %.4f (band %.4f .. %.4f)\n", res.TickerA, res.TickerB, res.Current, res.Lower, res.Upper)
	fmt.Fprintf(out, "Signal: %s\n%s\n", res.Signal, res.Explanation)
	return nil
}

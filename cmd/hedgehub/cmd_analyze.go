package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/report/export"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze TICKER_A TICKER_B",
		Short: "Test a pair for mean reversion and backtest the z-score strategy",
		Args:  cobra.ExactArgs(2),
		RunE:  runAnalyze,
	}
	addSourceFlags(cmd)
	addAnalysisFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	cmd.Flags().Int("trades", 10, "Number of most recent trades to print")
	cmd.Flags().String("out", "", "Also write result.json, ledger.csv and blotter.csv to this directory")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	req, err := loadRequest(ctx, cmd, cfg, strings.ToUpper(args[0]), strings.ToUpper(args[1]))
	if err != nil {
		return err
	}

	engine := analysis.NewEngine(analysis.WithLogger(log.Logger), analysis.WithPerfConfig(cfg.Performance))
	res, err := engine.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("out"); dir != "" {
		files, err := export.Write(dir, res)
		if err != nil {
			return err
		}
		log.Info().Strs("files", files).Msg("Result exported")
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	trades, _ := cmd.Flags().GetInt("trades")
	printResult(cmd.OutOrStdout(), res, trades)
	return nil
}

func printResult(out io.Writer, res *analysis.Result, trades int) {
	d := res.Diagnostics
	m := res.Metrics

	fmt.Fprintf(out, "%s / %s  (%d aligned bars, %s to %s)\n\n",
		d.TickerA, d.TickerB, d.NObs,
		res.Times[0].Format("2006-01-02"), res.Times[len(res.Times)-1].Format("2006-01-02"))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Hedge ratio\t%.4f\n", res.HedgeRatio)
	fmt.Fprintf(tw, "Correlation\t%.3f\n", d.Correlation)
	fmt.Fprintf(tw, "Test\t%s p=%.4f (cutoff %.2f)\n", d.TestUsed, d.PValue, d.Cutoff)
	fmt.Fprintf(tw, "Eligible\t%t\n", res.Eligible)
	fmt.Fprintf(tw, "Half-life\t%s\n", number(d.HalfLife, "%.1f bars"))
	fmt.Fprintf(tw, "Max holding\t%d bars\n", res.MaxHoldingPeriods)
	fmt.Fprintf(tw, "Latest z\t%s\n", number(res.Snapshot.Z, "%.2f"))
	tw.Flush()

	fmt.Fprintf(out, "\nSignal: %s\n%s\n\n", res.Signal, res.Explanation)

	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total return\t%.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(tw, "Annualized\t%.2f%%\n", m.AnnualizedReturn*100)
	fmt.Fprintf(tw, "Volatility\t%.2f%%\n", m.Volatility*100)
	fmt.Fprintf(tw, "Sharpe\t%.2f\n", m.Sharpe)
	fmt.Fprintf(tw, "Max drawdown\t%.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(tw, "Trades\t%d (win rate %.0f%%, %d stop-outs)\n", m.TradeCount, m.WinRate*100, m.StopOutCount)
	tw.Flush()

	if sum := res.AlertSummary; sum.TotalAlerts > 0 {
		fmt.Fprintf(out, "\nAlerts: %d (%d critical)\n", sum.TotalAlerts, sum.BySeverity["CRITICAL"])
		for _, a := range sum.TopAlerts {
			fmt.Fprintf(out, "! %s\n", a.Message)
		}
	}

	if trades <= 0 || len(res.Blotter) == 0 {
		return
	}
	start := len(res.Blotter) - trades
	if start < 0 {
		start = 0
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tEXIT\tSIDE\tBARS\tPNL\tREASON")
	for _, tr := range res.Blotter[start:] {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			tr.EntryTime.Format("2006-01-02"), tr.ExitTime.Format("2006-01-02"),
			tr.Direction, tr.HoldingPeriods, tr.PnL, tr.Reason)
	}
	tw.Flush()
}

func number(x float64, format string) string {
	switch {
	case math.IsNaN(x):
		return "n/a"
	case math.IsInf(x, 0):
		return "inf"
	}
	return fmt.Sprintf(format, x)
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/planner"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan TICKER_A TICKER_B",
		Short: "Turn the latest spread reading into a sized recommendation",
		Args:  cobra.ExactArgs(2),
		RunE:  runPlan,
	}
	addSourceFlags(cmd)
	cmd.Flags().Float64("amount", 10000, "Investable amount")
	cmd.Flags().String("risk", "Medium", "Risk level (Low|Medium|High)")
	cmd.Flags().Bool("json", false, "Print the plan as JSON")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	riskFlag, _ := cmd.Flags().GetString("risk")
	level, ok := planner.ParseRiskLevel(riskFlag)
	if !ok {
		return fmt.Errorf("--risk must be Low, Medium or High, got %q", riskFlag)
	}
	amount, _ := cmd.Flags().GetFloat64("amount")
	presets, err := cfg.Presets()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	req, err := loadRequest(ctx, cmd, cfg, strings.ToUpper(args[0]), strings.ToUpper(args[1]))
	if err != nil {
		return err
	}
	res, err := analysis.NewEngine(analysis.WithLogger(log.Logger)).Analyze(ctx, req)
	if err != nil {
		return err
	}

	snap := res.Snapshot
	plan := planner.New(presets).Plan(amount, level, &snap)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	if !res.Eligible {
		fmt.Fprintf(out, "Warning: %s\n\n", res.Explanation)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Risk level\t%s (entry ±%.2f, exit ±%.2f, %.0f%% allocated)\n",
		plan.RiskLevel, plan.EntryThreshold, plan.ExitThreshold, plan.AllocationFraction*100)
	fmt.Fprintf(tw, "Spread\t%.4f\n", plan.SpreadValue)
	fmt.Fprintf(tw, "Z-score\t%s\n", number(plan.ZScoreValue, "%.2f"))
	fmt.Fprintf(tw, "Direction\t%s\n", plan.Direction)
	fmt.Fprintf(tw, "Notional\t%s\n", plan.SuggestedNotional.StringFixed(2))
	if p := plan.Position; p != nil {
		fmt.Fprintf(tw, "Long leg %s\t%s (%s shares)\n", p.LongLeg, p.LongAmount.StringFixed(2), p.LongShares.String())
		fmt.Fprintf(tw, "Short leg %s\t%s (%s shares)\n", p.ShortLeg, p.ShortAmount.StringFixed(2), p.ShortShares.String())
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%s\n", plan.Rationale)
	return nil
}

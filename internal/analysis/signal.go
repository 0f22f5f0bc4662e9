package analysis

import (
	"fmt"
	"math"

	"github.com/sawpanic/hedgehub/internal/normalize"
)

// deriveSignal reads the latest z-score against the latest entry band and
// the exit band. An ineligible pair never gets a mean-reversion stance.
func deriveSignal(res *Result, z normalize.ZScores) (string, string) {
	tickerA, tickerB := res.Snapshot.TickerA, res.Snapshot.TickerB
	d := res.Diagnostics

	if !res.Eligible {
		return SignalCointegrationFail, fmt.Sprintf(
			"Cointegration test failed (%s p-value = %.3f, cutoff %.2f). "+
				"The price relationship does not show stable mean reversion. "+
				"Mean-reversion pairs trading is not recommended for this pair.",
			testLabel(d.TestUsed), d.PValue, d.Cutoff)
	}

	last := len(z.Values) - 1
	lastZ := z.Last()
	entry := res.Thresholds.At(last)
	exit := res.ExitThreshold
	mean, std := z.Means[last], z.Stds[last]
	exitLow, exitHigh := mean-exit*std, mean+exit*std

	switch {
	case math.IsNaN(lastZ):
		return SignalNoTrade, "The latest z-score is undefined, so no trade is recommended."
	case lastZ > entry:
		return SignalShortALongB, fmt.Sprintf(
			"Current z-score is %.2f, above the entry threshold %.2f. "+
				"Suggested action: short %s and long %s. "+
				"Exit when the spread moves back into the neutral range between %.4f and %.4f.",
			lastZ, entry, tickerA, tickerB, exitLow, exitHigh)
	case lastZ < -entry:
		return SignalLongAShortB, fmt.Sprintf(
			"Current z-score is %.2f, below the entry threshold -%.2f. "+
				"Suggested action: long %s and short %s. "+
				"Exit when the spread moves back into the neutral range between %.4f and %.4f.",
			lastZ, entry, tickerA, tickerB, exitLow, exitHigh)
	case math.Abs(lastZ) <= exit:
		return SignalClosePositions, fmt.Sprintf(
			"Current z-score is %.2f, inside the neutral exit band ±%.2f. "+
				"Suggested action: close existing positions and lock in profits or losses.",
			lastZ, exit)
	default:
		return SignalNoTrade, fmt.Sprintf(
			"Current z-score is %.2f. "+
				"The spread is not at an extreme level, so no new trade is recommended.",
			lastZ)
	}
}

func testLabel(test string) string {
	if test == "engle_granger" {
		return "Engle-Granger"
	}
	return "ADF"
}

package analysis

import (
	"fmt"

	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/series"
	"github.com/sawpanic/hedgehub/internal/stats"
)

// Momentum signal codes
const (
	SignalMomentumBuyA = "momentum_buy_A_sell_B"
	SignalMomentumBuyB = "momentum_buy_B_sell_A"
	SignalMomentumHold = "hold_no_signal"
)

// MomentumResult is the ratio-breakout reading of a pair. It is an
// alternative to the mean-reversion analysis for pairs that fail the
// cointegration test.
type MomentumResult struct {
	TickerA       string    `json:"ticker_a"`
	TickerB       string    `json:"ticker_b"`
	Ratio         []float64 `json:"ratio"`
	Current       float64   `json:"current"`
	Upper         float64   `json:"upper"`
	Lower         float64   `json:"lower"`
	StopReference float64   `json:"stop_reference"` // median ratio
	Signal        string    `json:"signal"`
	Explanation   string    `json:"explanation"`
}

// Momentum compares the latest A/B price ratio with its own historical
// quantiles: above highPct signals strength in A, below lowPct strength in B
func Momentum(aligned *series.Aligned, highPct, lowPct float64) (*MomentumResult, error) {
	if aligned == nil {
		return nil, errs.Insufficient("momentum", series.MinObservations, 0)
	}
	if !(lowPct > 0 && highPct < 1 && lowPct < highPct) {
		return nil, errs.Invalid("momentum_quantiles", "need 0 < low < high < 1, got %v / %v", lowPct, highPct)
	}

	pa, pb := aligned.PricesA(), aligned.PricesB()
	ratio := make([]float64, len(pa))
	for i := range pa {
		ratio[i] = pa[i] / pb[i]
	}

	res := &MomentumResult{
		TickerA:       aligned.TickerA(),
		TickerB:       aligned.TickerB(),
		Ratio:         ratio,
		Current:       ratio[len(ratio)-1],
		Upper:         stats.Quantile(ratio, highPct),
		Lower:         stats.Quantile(ratio, lowPct),
		StopReference: stats.Quantile(ratio, 0.5),
	}

	switch {
	case res.Current > res.Upper:
		res.Signal = SignalMomentumBuyA
		res.Explanation = fmt.Sprintf(
			"The price ratio A/B is above the upper breakout level, indicating upward momentum in %s relative to %s. "+
				"Suggested action: buy %s and sell %s. Suggested protective stop near ratio %.4f.",
			res.TickerA, res.TickerB, res.TickerA, res.TickerB, res.StopReference)
	case res.Current < res.Lower:
		res.Signal = SignalMomentumBuyB
		res.Explanation = fmt.Sprintf(
			"The price ratio A/B is below the lower threshold, indicating relative strength in %s and weakness in %s. "+
				"Suggested action: buy %s and sell %s. Suggested protective stop near ratio %.4f.",
			res.TickerB, res.TickerA, res.TickerB, res.TickerA, res.StopReference)
	default:
		res.Signal = SignalMomentumHold
		res.Explanation = "The price ratio A/B is within its typical range. " +
			"No strong momentum signal is detected, so no trade is suggested at this time."
	}
	return res, nil
}

package analysis

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sawpanic/hedgehub/internal/backtest"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/report/perf"
	"github.com/sawpanic/hedgehub/internal/spread"
	"github.com/sawpanic/hedgehub/internal/threshold"
)

// Signal codes describing the current stance on the pair
const (
	SignalShortALongB       = "short_A_long_B"
	SignalLongAShortB       = "long_A_short_B"
	SignalClosePositions    = "close_positions"
	SignalNoTrade           = "no_trade"
	SignalCointegrationFail = "no_pairs_trade_cointegration_failed"
)

// Result is the immutable outcome of one analysis run
type Result struct {
	RunID       string              `json:"run_id"`
	Eligible    bool                `json:"eligible"`
	Diagnostics *spread.Diagnostics `json:"diagnostics"`
	HedgeRatio  float64             `json:"hedge_ratio"`

	Times             []time.Time      `json:"times"`
	Spread            []float64        `json:"spread"`
	ZScores           []float64        `json:"zscores"` // NaN during a rolling warm-up
	Thresholds        threshold.Series `json:"thresholds"`
	ExitThreshold     float64          `json:"exit_threshold"`
	MaxHoldingPeriods int              `json:"max_holding_periods"`

	Signal      string `json:"signal"`
	Explanation string `json:"explanation"`

	Ledger  []backtest.LedgerRow  `json:"ledger"`
	Blotter []backtest.BlotterRow `json:"blotter"`
	Metrics *perf.PerfMetrics     `json:"metrics"`
	Alerts  []perf.Alert          `json:"alerts"`

	AlertSummary perf.AlertSummary `json:"alert_summary"`

	Config   Config           `json:"config"`
	Snapshot planner.Snapshot `json:"snapshot"`
}

// MarshalJSON writes undefined z-scores as null
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		*plain
		ZScores  []*float64   `json:"zscores"`
		Snapshot snapshotJSON `json:"snapshot"`
	}{
		plain:    (*plain)(r),
		ZScores:  nullable(r.ZScores),
		Snapshot: snapshotJSON{Snapshot: r.Snapshot, Z: finite(r.Snapshot.Z)},
	})
}

type snapshotJSON struct {
	planner.Snapshot
	Z *float64 `json:"zscore"`
}

func nullable(xs []float64) []*float64 {
	out := make([]*float64, len(xs))
	for i, x := range xs {
		out[i] = finite(x)
	}
	return out
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

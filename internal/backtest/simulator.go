package backtest

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/hedgehub/internal/exits"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/stats"
)

// tradeNamespace scopes the name-based trade IDs
var tradeNamespace = uuid.MustParse("6f1c3a52-8d0e-4b8e-9a57-2a8f3d1c9b40")

// Simulator walks the timeline once. It holds configuration only, so one
// value may serve concurrent runs.
type Simulator struct {
	config Config
	logger zerolog.Logger
}

// NewSimulator creates a simulator
func NewSimulator(config Config, logger zerolog.Logger) *Simulator {
	return &Simulator{config: config, logger: logger}
}

// run is the mutable state of a single simulation
type run struct {
	sim     *Simulator
	in      Inputs
	exit    *exits.ExitEvaluator
	state   Position
	open    *OpenTrade
	cash    float64
	result  *Result
	ordinal int
}

// Run simulates the strategy. Rows before the first defined z-score are not
// part of the tradable range and produce no ledger rows. Empty or all-NaN
// z-score input yields an empty result rather than an error.
func (s *Simulator) Run(in Inputs) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("simulation inputs: %w", err)
	}

	r := &run{
		sim: s,
		in:  in,
		exit: exits.NewExitEvaluator(&exits.ExitConfig{
			ExitZ:             s.config.ExitZ,
			StopLossFraction:  s.config.StopLossFraction,
			MaxHoldingPeriods: s.config.MaxHoldingPeriods,
			EnableStopLoss:    s.config.StopLossFraction > 0,
			EnableTimeStop:    true,
		}),
		cash:   s.config.InitialCapital,
		result: &Result{StartIndex: firstDefined(in.Z)},
	}

	start := r.result.StartIndex
	if start < 0 {
		s.logger.Debug().Int("rows", in.Len()).Msg("No defined z-scores, nothing to simulate")
		return r.result, nil
	}

	for t := start; t < in.Len(); t++ {
		r.step(t)
	}
	if r.open != nil {
		last := in.Len() - 1
		r.close(last, exits.ExitResult{
			ShouldExit:  true,
			ExitReason:  exits.EndOfSample,
			TriggeredBy: "final observation",
			TradePnL:    r.open.pnl(in.PricesA[last], in.PricesB[last]),
			HeldPeriods: last - r.open.EntryIndex,
		})
	}
	r.result.FinalState = r.state

	s.logger.Debug().
		Int("rows", len(r.result.Ledger)).
		Int("trades", len(r.result.Blotter)).
		Float64("cash", r.cash).
		Msg("Simulation complete")
	return r.result, nil
}

// step applies mark, exit check, entry check and ledger append for timestep t
func (r *run) step(t int) {
	in := r.in
	pa, pb := in.PricesA[t], in.PricesB[t]

	// position held over (t-1, t]
	dayPnL := 0.0
	if r.open != nil && t > 0 {
		dayPnL = r.open.QtyA*(pa-in.PricesA[t-1]) + r.open.QtyB*(pb-in.PricesB[t-1])
	}

	exited := false
	if r.open != nil {
		res := r.exit.EvaluateExit(exits.ExitInputs{
			CurrentTime:    in.Times[t],
			Z:              in.Z[t],
			TradePnL:       r.open.pnl(pa, pb),
			CapitalAtEntry: r.open.CapitalAtEntry,
			HeldPeriods:    t - r.open.EntryIndex,
			MaxHolding:     in.MaxHoldingPeriods,
		})
		if res.ShouldExit {
			r.close(t, res)
			exited = true
		}
	}

	thr := in.Thresholds[t]
	z := in.Z[t]
	if r.state == Flat && !exited && t < in.Len()-1 && defined(z) && defined(thr) {
		switch {
		case z >= thr:
			r.enter(t, ShortSpread)
		case z <= -thr:
			r.enter(t, LongSpread)
		}
	}

	row := LedgerRow{
		Time:      in.Times[t],
		Position:  r.state,
		Cash:      r.cash,
		Equity:    r.equity(pa, pb),
		PriceA:    pa,
		PriceB:    pb,
		Spread:    in.Spread[t],
		Z:         z,
		Threshold: thr,
		PnL:       dayPnL,
	}
	if r.open != nil {
		row.QtyA, row.QtyB = r.open.QtyA, r.open.QtyB
	}
	r.result.Ledger = append(r.result.Ledger, row)
}

// equity marks cash plus open holdings at the given prices
func (r *run) equity(pa, pb float64) float64 {
	if r.open == nil {
		return r.cash
	}
	return r.cash + r.open.QtyA*pa + r.open.QtyB*pb
}

func (r *run) enter(t int, dir Position) {
	in := r.in
	pa, pb := in.PricesA[t], in.PricesB[t]
	equity := r.equity(pa, pb)

	qa, qb := r.size(equity, pa, pb)
	if qa <= 0 || qb <= 0 {
		r.sim.logger.Debug().Int("t", t).Float64("equity", equity).Msg("Entry skipped, a leg size rounds to zero")
		return
	}

	sign := dir.sign()
	r.ordinal++
	r.open = &OpenTrade{
		Ordinal:        r.ordinal,
		Direction:      dir,
		EntryIndex:     t,
		EntryTime:      in.Times[t],
		EntrySpread:    in.Spread[t],
		EntryZ:         in.Z[t],
		EntryPriceA:    pa,
		EntryPriceB:    pb,
		QtyA:           sign * qa,
		QtyB:           -sign * qb,
		CapitalAtEntry: equity,
	}
	r.cash -= r.open.QtyA*pa + r.open.QtyB*pb
	r.state = dir
	r.result.Entries++

	r.sim.logger.Debug().
		Time("time", in.Times[t]).
		Str("direction", dir.String()).
		Float64("z", in.Z[t]).
		Float64("threshold", in.Thresholds[t]).
		Msg("Opened spread trade")
}

// size returns unsigned leg quantities. Fixed-share mode trades SharesPerTrade
// of A against SharesPerTrade×hedge of B; allocation mode splits a fraction of
// equity across the legs with the planner's hedge-weighted sizer. Both clamp a
// non-positive hedge to 1.
func (r *run) size(equity, pa, pb float64) (float64, float64) {
	cfg := r.sim.config
	if cfg.SharesPerTrade > 0 {
		return cfg.SharesPerTrade, cfg.SharesPerTrade * stats.SizingHedge(r.in.HedgeRatio)
	}
	notional := decimal.NewFromFloat(equity * cfg.AllocationFraction).Round(2)
	sizing := planner.SizePosition(notional, r.in.HedgeRatio, pa, pb, planner.SignalLongAShortB)
	return sizing.LongShares.InexactFloat64(), sizing.ShortShares.InexactFloat64()
}

func (r *run) close(t int, res exits.ExitResult) {
	in := r.in
	trade := r.open
	pa, pb := in.PricesA[t], in.PricesB[t]
	pnl := trade.pnl(pa, pb)

	r.cash += trade.QtyA*pa + trade.QtyB*pb

	row := BlotterRow{
		ID:             tradeID(r.sim.config.Seed, trade.Ordinal),
		Direction:      trade.Direction,
		EntryTime:      trade.EntryTime,
		ExitTime:       in.Times[t],
		EntryPriceA:    trade.EntryPriceA,
		EntryPriceB:    trade.EntryPriceB,
		ExitPriceA:     pa,
		ExitPriceB:     pb,
		QtyA:           trade.QtyA,
		QtyB:           trade.QtyB,
		EntrySpread:    trade.EntrySpread,
		ExitSpread:     in.Spread[t],
		EntryZ:         trade.EntryZ,
		ExitZ:          in.Z[t],
		HoldingPeriods: t - trade.EntryIndex,
		PnL:            pnl,
		Reason:         res.ExitReason,
		TriggeredBy:    res.TriggeredBy,
	}
	if trade.CapitalAtEntry > 0 {
		row.ReturnPct = pnl / trade.CapitalAtEntry
	}
	r.result.Blotter = append(r.result.Blotter, row)

	r.sim.logger.Debug().
		Time("time", in.Times[t]).
		Str("reason", res.ExitReason.String()).
		Float64("pnl", pnl).
		Int("held", row.HoldingPeriods).
		Str("summary", res.GetExitSummary()).
		Msg("Closed spread trade")

	r.open = nil
	r.state = Flat
}

// tradeID is stable for a given seed and trade ordinal
func tradeID(seed string, ordinal int) string {
	return uuid.NewSHA1(tradeNamespace, []byte(fmt.Sprintf("%s/%d", seed, ordinal))).String()
}

func firstDefined(z []float64) int {
	for i, v := range z {
		if defined(v) {
			return i
		}
	}
	return -1
}

func defined(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

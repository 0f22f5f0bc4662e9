package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Signal codes emitted by Plan
const (
	SignalShortALongB   = "short_A_long_B"
	SignalLongAShortB   = "long_A_short_B"
	SignalWait          = "wait"
	SignalAwaitAnalysis = "await_analysis"
)

const (
	rationaleAwait = "Configure pair analysis to unlock live spread context."
	rationaleLive  = "Spread deviation versus long-term equilibrium."
)

// Snapshot is the latest state of an analysed pair
type Snapshot struct {
	TickerA    string  `json:"ticker_a"`
	TickerB    string  `json:"ticker_b"`
	Spread     float64 `json:"spread"`
	Z          float64 `json:"zscore"`
	HedgeRatio float64 `json:"hedge_ratio"`
	PriceA     float64 `json:"price_a"`
	PriceB     float64 `json:"price_b"`
}

// StrategyPlan is a recommendation; it only reads the snapshot it was built from
type StrategyPlan struct {
	RiskLevel          RiskLevel       `json:"risk_level"`
	Signal             string          `json:"signal"`
	Direction          string          `json:"direction"` // human label, e.g. "Short XLE / Long XOP"
	Rationale          string          `json:"rationale"`
	EntryThreshold     float64         `json:"entry_threshold"`
	ExitThreshold      float64         `json:"exit_threshold"`
	AllocationFraction float64         `json:"allocation_fraction"`
	SpreadValue        float64         `json:"spread_value"`
	ZScoreValue        float64         `json:"zscore_value"`
	SuggestedNotional  decimal.Decimal `json:"suggested_notional"`
	Position           *Sizing         `json:"position,omitempty"`
}

// Planner builds plans against a preset table
type Planner struct {
	presets Presets
}

// New creates a planner; nil presets use DefaultPresets
func New(presets Presets) *Planner {
	if presets == nil {
		presets = DefaultPresets()
	}
	return &Planner{presets: presets}
}

// Plan compares the snapshot's z-score against the risk preset's own entry
// band. Without a snapshot the plan is a neutral "await analysis" with zero
// spread and z-score.
func (p *Planner) Plan(amount float64, level RiskLevel, snap *Snapshot) StrategyPlan {
	level, _ = ParseRiskLevel(string(level))
	preset := p.presets.For(level)

	plan := StrategyPlan{
		RiskLevel:          level,
		EntryThreshold:     preset.EntryZ,
		ExitThreshold:      preset.ExitZ,
		AllocationFraction: preset.Allocation,
		SuggestedNotional:  Notional(amount, preset.Allocation),
		Signal:             SignalAwaitAnalysis,
		Direction:          "Await Analysis",
		Rationale:          rationaleAwait,
	}
	if snap == nil {
		return plan
	}

	labelA := label(snap.TickerA, "ASSET A")
	labelB := label(snap.TickerB, "ASSET B")
	plan.SpreadValue = snap.Spread
	plan.ZScoreValue = snap.Z
	plan.Rationale = rationaleLive

	switch {
	case snap.Z >= preset.EntryZ:
		plan.Signal = SignalShortALongB
		plan.Direction = fmt.Sprintf("Short %s / Long %s", labelA, labelB)
	case snap.Z <= -preset.EntryZ:
		plan.Signal = SignalLongAShortB
		plan.Direction = fmt.Sprintf("Long %s / Short %s", labelA, labelB)
	default:
		plan.Signal = SignalWait
		plan.Direction = "Wait for Entry"
	}

	if snap.PriceA > 0 && snap.PriceB > 0 {
		sizing := SizePosition(plan.SuggestedNotional, snap.HedgeRatio, snap.PriceA, snap.PriceB, plan.Signal)
		plan.Position = &sizing
	}
	return plan
}

// Notional is max(0, amount) × allocation, rounded to cents
func Notional(amount, allocation float64) decimal.Decimal {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(allocation)).Round(2)
}

func label(ticker, fallback string) string {
	if t := strings.TrimSpace(ticker); t != "" {
		return strings.ToUpper(t)
	}
	return fallback
}

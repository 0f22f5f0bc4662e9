// Package backtest runs the day-by-day spread trading simulation: one open
// trade at most, three competing exit rules and a forced close at the end of
// the sample.
package backtest

import (
	"fmt"
	"time"

	"github.com/sawpanic/hedgehub/internal/exits"
)

// Position is the simulator state
type Position int

const (
	Flat Position = iota
	LongSpread
	ShortSpread
)

func (p Position) String() string {
	switch p {
	case Flat:
		return "Flat"
	case LongSpread:
		return "LongSpread"
	case ShortSpread:
		return "ShortSpread"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a state name
func (p *Position) UnmarshalText(b []byte) error {
	for _, candidate := range []Position{Flat, LongSpread, ShortSpread} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown position %q", b)
}

// sign is +1 for long spread (long A / short B), -1 for short spread
func (p Position) sign() float64 {
	switch p {
	case LongSpread:
		return 1
	case ShortSpread:
		return -1
	default:
		return 0
	}
}

// OpenTrade is the entry record of the single open position
type OpenTrade struct {
	Ordinal        int       `json:"ordinal"`
	Direction      Position  `json:"direction"`
	EntryIndex     int       `json:"entry_index"`
	EntryTime      time.Time `json:"entry_time"`
	EntrySpread    float64   `json:"entry_spread"`
	EntryZ         float64   `json:"entry_z"`
	EntryPriceA    float64   `json:"entry_price_a"`
	EntryPriceB    float64   `json:"entry_price_b"`
	QtyA           float64   `json:"qty_a"` // signed holding in leg A
	QtyB           float64   `json:"qty_b"` // signed holding in leg B
	CapitalAtEntry float64   `json:"capital_at_entry"`
}

// pnl is the mark-to-market gain of the trade at the given prices
func (t *OpenTrade) pnl(priceA, priceB float64) float64 {
	return t.QtyA*(priceA-t.EntryPriceA) + t.QtyB*(priceB-t.EntryPriceB)
}

// LedgerRow is the end-of-day snapshot appended once per simulated timestep
type LedgerRow struct {
	Time      time.Time `json:"time"`
	Position  Position  `json:"position"`
	QtyA      float64   `json:"qty_a"`
	QtyB      float64   `json:"qty_b"`
	Cash      float64   `json:"cash"`
	Equity    float64   `json:"equity"`
	PriceA    float64   `json:"price_a"`
	PriceB    float64   `json:"price_b"`
	Spread    float64   `json:"spread"`
	Z         float64   `json:"zscore"`
	Threshold float64   `json:"threshold"`
	PnL       float64   `json:"pnl"` // mark-to-market change over (t-1, t]
}

// BlotterRow is one closed trade
type BlotterRow struct {
	ID             string           `json:"id"`
	Direction      Position         `json:"direction"`
	EntryTime      time.Time        `json:"entry_time"`
	ExitTime       time.Time        `json:"exit_time"`
	EntryPriceA    float64          `json:"entry_price_a"`
	EntryPriceB    float64          `json:"entry_price_b"`
	ExitPriceA     float64          `json:"exit_price_a"`
	ExitPriceB     float64          `json:"exit_price_b"`
	QtyA           float64          `json:"qty_a"`
	QtyB           float64          `json:"qty_b"`
	EntrySpread    float64          `json:"entry_spread"`
	ExitSpread     float64          `json:"exit_spread"`
	EntryZ         float64          `json:"entry_z"`
	ExitZ          float64          `json:"exit_z"`
	HoldingPeriods int              `json:"holding_periods"`
	PnL            float64          `json:"pnl"`
	ReturnPct      float64          `json:"return_pct"` // PnL / capital at entry
	Reason         exits.ExitReason `json:"reason"`
	TriggeredBy    string           `json:"triggered_by"`
}

// Inputs is the per-run market data. All slices are aligned 1:1 with Times.
type Inputs struct {
	Times      []time.Time
	PricesA    []float64
	PricesB    []float64
	Spread     []float64
	Z          []float64 // NaN where undefined
	Thresholds []float64 // entry band per timestep
	HedgeRatio float64

	// MaxHoldingPeriods caps a trade's life; 0 uses the exit config default
	MaxHoldingPeriods int
}

// Len is the number of timesteps
func (in Inputs) Len() int { return len(in.Times) }

func (in Inputs) validate() error {
	n := len(in.Times)
	for name, l := range map[string]int{
		"prices_a":   len(in.PricesA),
		"prices_b":   len(in.PricesB),
		"spread":     len(in.Spread),
		"zscores":    len(in.Z),
		"thresholds": len(in.Thresholds),
	} {
		if l != n {
			return fmt.Errorf("%s has %d rows, timeline has %d", name, l, n)
		}
	}
	return nil
}

// Config is the per-run simulation configuration
type Config struct {
	InitialCapital     float64 `yaml:"initial_capital" json:"initial_capital"`
	SharesPerTrade     float64 `yaml:"shares_per_trade" json:"shares_per_trade"`         // > 0 trades a fixed leg-A size
	AllocationFraction float64 `yaml:"allocation_fraction" json:"allocation_fraction"`   // used when SharesPerTrade is 0
	ExitZ              float64 `yaml:"exit_z" json:"exit_z"`
	StopLossFraction   float64 `yaml:"stop_loss_fraction" json:"stop_loss_fraction"`
	MaxHoldingPeriods  int     `yaml:"max_holding_periods" json:"max_holding_periods"` // default when Inputs carries none

	// Seed namespaces the deterministic trade IDs
	Seed string `yaml:"-" json:"-"`
}

// DefaultConfig mirrors the exit defaults with $100k and half the equity per trade
func DefaultConfig() Config {
	ec := exits.DefaultExitConfig()
	return Config{
		InitialCapital:     100000,
		AllocationFraction: 0.5,
		ExitZ:              ec.ExitZ,
		StopLossFraction:   ec.StopLossFraction,
		MaxHoldingPeriods:  ec.MaxHoldingPeriods,
	}
}

// Result is the simulation output
type Result struct {
	Ledger     []LedgerRow  `json:"ledger"`
	Blotter    []BlotterRow `json:"blotter"`
	FinalState Position     `json:"final_state"`
	StartIndex int          `json:"start_index"` // first tradable timestep, -1 when none
	Entries    int          `json:"entries"`
}

// Equity returns the ledger equity curve
func (r *Result) Equity() []float64 {
	out := make([]float64, len(r.Ledger))
	for i, row := range r.Ledger {
		out[i] = row.Equity
	}
	return out
}

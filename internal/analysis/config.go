// Package analysis runs one pair analysis end to end: align, diagnose,
// normalize, simulate, aggregate and derive the current signal.
package analysis

import (
	"math"

	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/normalize"
	"github.com/sawpanic/hedgehub/internal/spread"
	"github.com/sawpanic/hedgehub/internal/threshold"
)

// Config is the caller-supplied configuration of a single run. It is a value
// type; every request carries its own copy.
type Config struct {
	EntryZ float64 `yaml:"entry_z" json:"entry_z"`
	ExitZ  float64 `yaml:"exit_z" json:"exit_z"`

	PValueCutoff     float64     `yaml:"pvalue_cutoff" json:"pvalue_cutoff"`
	UseCointegration bool        `yaml:"use_cointegration" json:"use_cointegration"`
	SpreadKind       spread.Kind `yaml:"spread_kind" json:"spread_kind"`

	InitialCapital     float64 `yaml:"initial_capital" json:"initial_capital"`
	SharesPerTrade     float64 `yaml:"shares_per_trade" json:"shares_per_trade"`
	AllocationFraction float64 `yaml:"allocation_fraction" json:"allocation_fraction"`
	StopLossFraction   float64 `yaml:"stop_loss_fraction" json:"stop_loss_fraction"`

	// MaxHoldingPeriods > 0 overrides the half-life derived cap
	MaxHoldingPeriods int     `yaml:"max_holding_periods" json:"max_holding_periods"`
	HoldingMultiplier float64 `yaml:"holding_multiplier" json:"holding_multiplier"`
	FallbackHolding   int     `yaml:"fallback_holding_periods" json:"fallback_holding_periods"`

	ZScoreMode   normalize.Mode `yaml:"zscore_mode" json:"zscore_mode"`
	ZScoreWindow int            `yaml:"zscore_window" json:"zscore_window"`

	AdaptiveThreshold bool             `yaml:"adaptive_threshold" json:"adaptive_threshold"`
	Bands             []threshold.Band `yaml:"bands" json:"bands,omitempty"`
	FallbackVolLevel  float64          `yaml:"fallback_vol_level" json:"fallback_vol_level"`
}

// DefaultConfig is the ±2.0 / 0.5 band, 5% Engle-Granger cutoff, $100k with
// half the equity per trade and a 5% stop
func DefaultConfig() Config {
	return Config{
		EntryZ:             2.0,
		ExitZ:              0.5,
		PValueCutoff:       0.05,
		UseCointegration:   true,
		SpreadKind:         spread.KindDifference,
		InitialCapital:     100000,
		AllocationFraction: 0.5,
		StopLossFraction:   0.05,
		HoldingMultiplier:  1.5,
		FallbackHolding:    20,
		ZScoreMode:         normalize.ModeGlobal,
		ZScoreWindow:       normalize.DefaultWindow,
		Bands:              threshold.DefaultBands(),
		FallbackVolLevel:   threshold.DefaultFallbackLevel,
	}
}

// Validate reports the first invalid field. Nothing is corrected silently.
func (c Config) Validate() error {
	switch {
	case !positive(c.EntryZ):
		return errs.Invalid("entry_z", "must be > 0, got %v", c.EntryZ)
	case !positive(c.ExitZ):
		return errs.Invalid("exit_z", "must be > 0, got %v", c.ExitZ)
	case c.ExitZ >= c.EntryZ:
		return errs.Invalid("exit_z", "must be below entry_z %v, got %v", c.EntryZ, c.ExitZ)
	case !positive(c.PValueCutoff) || c.PValueCutoff >= 1:
		return errs.Invalid("pvalue_cutoff", "must be in (0, 1), got %v", c.PValueCutoff)
	case !positive(c.InitialCapital):
		return errs.Invalid("initial_capital", "must be > 0, got %v", c.InitialCapital)
	case c.SharesPerTrade < 0 || math.IsNaN(c.SharesPerTrade):
		return errs.Invalid("shares_per_trade", "must not be negative, got %v", c.SharesPerTrade)
	case c.SharesPerTrade == 0 && (!positive(c.AllocationFraction) || c.AllocationFraction > 1):
		return errs.Invalid("allocation_fraction", "must be in (0, 1] when shares_per_trade is unset, got %v", c.AllocationFraction)
	case !positive(c.StopLossFraction):
		return errs.Invalid("stop_loss_fraction", "must be > 0, got %v", c.StopLossFraction)
	case c.MaxHoldingPeriods < 0:
		return errs.Invalid("max_holding_periods", "must not be negative, got %d", c.MaxHoldingPeriods)
	case c.MaxHoldingPeriods == 0 && c.FallbackHolding <= 0:
		return errs.Invalid("fallback_holding_periods", "must be > 0, got %d", c.FallbackHolding)
	case c.MaxHoldingPeriods == 0 && !positive(c.HoldingMultiplier):
		return errs.Invalid("holding_multiplier", "must be > 0, got %v", c.HoldingMultiplier)
	}

	if _, err := spread.ParseKind(string(c.SpreadKind)); err != nil {
		return errs.Invalid("spread_kind", "%v", err)
	}
	mode, err := normalize.ParseMode(string(c.ZScoreMode))
	if err != nil {
		return errs.Invalid("zscore_mode", "%v", err)
	}
	if mode == normalize.ModeRolling && c.ZScoreWindow < 2 {
		return errs.Invalid("zscore_window", "must be at least 2, got %d", c.ZScoreWindow)
	}
	if c.AdaptiveThreshold {
		if err := threshold.ValidateBands(c.Bands); err != nil {
			return errs.Invalid("bands", "%v", err)
		}
	}
	return nil
}

// normalized fills optional zero values that have a documented default
func (c Config) normalized() Config {
	if c.SpreadKind == "" {
		c.SpreadKind = spread.KindDifference
	}
	if c.ZScoreMode == "" {
		c.ZScoreMode = normalize.ModeGlobal
	}
	if c.AdaptiveThreshold && len(c.Bands) == 0 {
		c.Bands = threshold.DefaultBands()
	}
	if c.FallbackVolLevel <= 0 {
		c.FallbackVolLevel = threshold.DefaultFallbackLevel
	}
	return c
}

func positive(x float64) bool {
	return x > 0 && !math.IsNaN(x) && !math.IsInf(x, 0)
}

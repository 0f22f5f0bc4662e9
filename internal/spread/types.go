// Package spread builds the hedged spread of an aligned pair and computes the
// diagnostics that decide whether the pair is mean-reversion eligible.
package spread

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind selects how the spread is formed
type Kind string

const (
	// KindDifference is priceA - hedgeRatio*priceB
	KindDifference Kind = "difference"
	// KindLog is log(priceA) - log(priceB)
	KindLog Kind = "log"
)

// ParseKind accepts "difference" (default for empty input) or "log"
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindDifference:
		return KindDifference, nil
	case KindLog:
		return KindLog, nil
	default:
		return "", fmt.Errorf("unknown spread kind %q", s)
	}
}

// Config controls Diagnose
type Config struct {
	Kind             Kind    `yaml:"kind" json:"kind"`
	PValueCutoff     float64 `yaml:"pvalue_cutoff" json:"pvalue_cutoff"`         // eligibility threshold
	UseCointegration bool    `yaml:"use_cointegration" json:"use_cointegration"` // Engle-Granger instead of ADF for eligibility
}

// DefaultConfig returns the 5% Engle-Granger configuration
func DefaultConfig() Config {
	return Config{
		Kind:             KindDifference,
		PValueCutoff:     0.05,
		UseCointegration: true,
	}
}

// Diagnostics is the statistical profile of the spread. Computed once per run.
type Diagnostics struct {
	TickerA string `json:"ticker_a"`
	TickerB string `json:"ticker_b"`
	Kind    Kind   `json:"kind"`

	HedgeRatio     float64 `json:"hedge_ratio"`
	HedgeIntercept float64 `json:"hedge_intercept"`
	HedgeRSquared  float64 `json:"hedge_r_squared"`
	HedgeFallback  bool    `json:"hedge_fallback"`

	Correlation        float64         `json:"correlation"`
	ReturnCorrelations map[int]float64 `json:"return_correlations"` // trailing window -> correlation of daily returns

	CointStatistic float64            `json:"coint_statistic"`
	CointPValue    float64            `json:"coint_pvalue"`
	CointCritical  map[string]float64 `json:"coint_critical_values,omitempty"`
	ADFStatistic   float64            `json:"adf_statistic"`
	ADFPValue      float64            `json:"adf_pvalue"`
	ADFUsedLag     int                `json:"adf_used_lag"`
	ADFCritical    map[string]float64 `json:"adf_critical_values,omitempty"`

	HalfLife float64 `json:"half_life"` // +Inf when the spread does not revert
	ARCoeff  float64 `json:"ar_coefficient"`
	Mean     float64 `json:"spread_mean"`
	Std      float64 `json:"spread_std"`
	PValue   float64 `json:"pvalue"` // the p-value used for eligibility
	Cutoff   float64 `json:"pvalue_cutoff"`
	Eligible bool    `json:"eligible"`
	TestUsed string  `json:"test_used"` // "engle_granger" or "adf"
	NObs     int     `json:"nobs"`
}

// MarshalJSON writes non-finite statistics (an infinite half-life, a
// degenerate test statistic) as null
func (d *Diagnostics) MarshalJSON() ([]byte, error) {
	type plain Diagnostics
	return json.Marshal(struct {
		*plain
		HalfLife       *float64 `json:"half_life"`
		ADFStatistic   *float64 `json:"adf_statistic"`
		CointStatistic *float64 `json:"coint_statistic"`
	}{
		plain:          (*plain)(d),
		HalfLife:       finite(d.HalfLife),
		ADFStatistic:   finite(d.ADFStatistic),
		CointStatistic: finite(d.CointStatistic),
	})
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

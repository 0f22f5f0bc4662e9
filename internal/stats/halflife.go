package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// HalfLifeFit is the AR(1) fit of the spread's first difference on its lagged level
type HalfLifeFit struct {
	Rho       float64 `json:"rho"`
	Intercept float64 `json:"intercept"`
	HalfLife  float64 `json:"half_life"` // +Inf when Rho >= 0 or the fit is degenerate
}

// HalfLife regresses Δs[t] on s[t-1] with an intercept. A negative slope gives
// -ln(2)/rho periods; anything else has no finite reversion speed.
func HalfLife(spread []float64) HalfLifeFit {
	if len(spread) < 3 {
		return HalfLifeFit{HalfLife: math.Inf(1)}
	}

	lagged := spread[:len(spread)-1]
	delta := Diff(spread)
	if NearlyConstant(lagged) {
		return HalfLifeFit{HalfLife: math.Inf(1)}
	}

	intercept, rho := stat.LinearRegression(lagged, delta, nil, false)
	fit := HalfLifeFit{Rho: rho, Intercept: intercept, HalfLife: math.Inf(1)}
	if rho < 0 && !math.IsNaN(rho) {
		fit.HalfLife = -math.Ln2 / rho
	}
	return fit
}

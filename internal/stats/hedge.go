// Package stats implements the regression and time-series statistics used to
// qualify a pair: hedge ratio, correlation, ADF / Engle-Granger tests and
// mean-reversion half-life.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sawpanic/hedgehub/internal/errs"
)

// DegenerateHedgeRatio is substituted when the regression slope is unusable
const DegenerateHedgeRatio = 1.0

// HedgeFit is the OLS fit a = Beta*b + Alpha
type HedgeFit struct {
	Beta       float64 `json:"beta"`
	Alpha      float64 `json:"alpha"`
	RSquared   float64 `json:"r_squared"`
	Degenerate bool    `json:"degenerate"` // Beta replaced by DegenerateHedgeRatio
}

// FitHedge regresses a on b with an intercept
func FitHedge(a, b []float64) (HedgeFit, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return HedgeFit{}, errs.Insufficient("hedge ratio", 2, n)
	}
	a, b = a[:n], b[:n]

	if NearlyConstant(b) {
		return HedgeFit{Beta: DegenerateHedgeRatio, Alpha: mean(a) - mean(b), Degenerate: true}, nil
	}

	alpha, beta := stat.LinearRegression(b, a, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return HedgeFit{Beta: DegenerateHedgeRatio, Alpha: mean(a) - mean(b), Degenerate: true}, nil
	}

	r2 := stat.RSquared(b, a, nil, alpha, beta)
	if math.IsNaN(r2) {
		r2 = 0
	}
	return HedgeFit{Beta: beta, Alpha: alpha, RSquared: r2}, nil
}

// HedgeRatio returns the OLS slope of a regressed on b
func HedgeRatio(a, b []float64) (float64, error) {
	fit, err := FitHedge(a, b)
	if err != nil {
		return 0, err
	}
	return fit.Beta, nil
}

// SizingHedge clamps a hedge ratio for capital-split sizing: non-positive or
// non-finite ratios become DegenerateHedgeRatio
func SizingHedge(beta float64) float64 {
	if beta <= 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return DegenerateHedgeRatio
	}
	return beta
}

// Correlation is the Pearson correlation, 0 when either input has no variance
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]
	if NearlyConstant(a) || NearlyConstant(b) {
		return 0
	}
	c := stat.Correlation(a, b, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// RollingCorrelation returns the correlation of the trailing window ending at
// the final observation, 0 when fewer than window points exist
func RollingCorrelation(a, b []float64, window int) float64 {
	if window < 2 || len(a) < window || len(b) < window {
		return 0
	}
	return Correlation(a[len(a)-window:], b[len(b)-window:])
}

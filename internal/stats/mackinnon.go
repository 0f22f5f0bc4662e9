package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// MacKinnon (1994) response-surface coefficients for the constant-only
// regression, indexed by the number of integrated series N-1.
var (
	tauMaxC   = []float64{2.74, 0.92}
	tauMinC   = []float64{-18.83, -18.86}
	tauStarC  = []float64{-1.61, -2.62}
	tauSmallC = [][]float64{
		{2.1659, 1.4412, 0.038269},
		{2.92, 1.5012, 0.039796},
	}
	tauLargeC = [][]float64{
		{1.7339, 0.93202, -0.12745, -0.010368},
		{2.1945, 0.64695, -0.29198, -0.042377},
	}
)

// MacKinnon (2010) finite-sample critical value coefficients, "c" regression
var critC = [][][]float64{
	{
		{-3.43035, -6.5393, -16.786, -79.433},
		{-2.86154, -2.8903, -4.234, -40.040},
		{-2.56677, -1.5384, -2.809, 0},
	},
	{
		{-3.89644, -10.9519, -22.527, 0},
		{-3.33613, -6.1101, -6.823, 0},
		{-3.04445, -4.2412, -2.720, 0},
	},
}

// mackinnonP approximates the p-value of a unit-root t statistic for n
// series (1 = ADF, 2 = Engle-Granger on a pair)
func mackinnonP(tstat float64, n int) float64 {
	i := n - 1
	switch {
	case math.IsNaN(tstat):
		return 1
	case tstat > tauMaxC[i]:
		return 1
	case tstat < tauMinC[i]:
		return 0
	}

	coef := tauLargeC[i]
	if tstat <= tauStarC[i] {
		coef = tauSmallC[i]
	}
	return distuv.UnitNormal.CDF(polyval(coef, tstat))
}

// mackinnonCrit returns the 1%, 5% and 10% critical values for nobs
func mackinnonCrit(n, nobs int) map[string]float64 {
	table := critC[n-1]
	t := float64(nobs)
	level := func(c []float64) float64 {
		return c[0] + c[1]/t + c[2]/(t*t) + c[3]/(t*t*t)
	}
	return map[string]float64{
		"1%":  level(table[0]),
		"5%":  level(table[1]),
		"10%": level(table[2]),
	}
}

// polyval evaluates c[0] + c[1]x + c[2]x^2 + ...
func polyval(c []float64, x float64) float64 {
	out := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}
	return out
}

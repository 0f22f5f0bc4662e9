package stats

import (
	"math"

	"github.com/sawpanic/hedgehub/internal/errs"
)

// Trend selects the deterministic terms of the ADF regression
type Trend int

const (
	TrendConstant Trend = iota // intercept only
	TrendNone                  // no deterministic terms
)

// ADFOptions controls lag selection
type ADFOptions struct {
	Trend   Trend
	MaxLag  int  // <0 selects 12*(n/100)^(1/4)
	AutoLag bool // choose the lag in [0, MaxLag] minimising AIC
}

// DefaultADFOptions mirrors the conventional constant + AIC configuration
func DefaultADFOptions() ADFOptions {
	return ADFOptions{Trend: TrendConstant, MaxLag: -1, AutoLag: true}
}

// ADFResult is the outcome of a unit-root test.
type ADFResult struct {
	Statistic  float64            `json:"statistic"`
	PValue     float64            `json:"p_value"`
	UsedLag    int                `json:"used_lag"`
	NObs       int                `json:"nobs"`
	Critical   map[string]float64 `json:"critical_values"`
	Degenerate bool               `json:"degenerate"` // constant input or singular design
}

// ADF runs the augmented Dickey-Fuller test on x. The p-value uses the
// MacKinnon single-series surface regardless of opts.Trend.
func ADF(x []float64, opts ADFOptions) (ADFResult, error) {
	stat, lag, nobs, ok, err := adfStatistic(x, opts)
	if err != nil {
		return ADFResult{}, err
	}
	if !ok {
		return ADFResult{Statistic: math.NaN(), PValue: 1, Degenerate: true, NObs: nobs, UsedLag: lag}, nil
	}
	return ADFResult{
		Statistic: stat,
		PValue:    mackinnonP(stat, 1),
		UsedLag:   lag,
		NObs:      nobs,
		Critical:  mackinnonCrit(1, nobs),
	}, nil
}

func adfStatistic(x []float64, opts ADFOptions) (float64, int, int, bool, error) {
	ntrend := 1
	if opts.Trend == TrendNone {
		ntrend = 0
	}

	n := len(x)
	maxlag := opts.MaxLag
	if maxlag < 0 {
		maxlag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
		if limit := n/2 - ntrend - 1; limit < maxlag {
			maxlag = limit
		}
	}
	if maxlag < 0 || n < ntrend+4 {
		return 0, 0, 0, false, errs.Insufficient("adf", ntrend+4, n)
	}
	if NearlyConstant(x) {
		return 0, 0, n, false, nil
	}

	dx := Diff(x)
	lag := maxlag
	if opts.AutoLag && maxlag > 0 {
		y, full := adfDesign(x, dx, maxlag, maxlag, ntrend)
		bestAIC := math.Inf(1)
		for l := 0; l <= maxlag; l++ {
			fit, ok := ols(y, full[:ntrend+1+l])
			if !ok {
				continue
			}
			if a := fit.aic(); a < bestAIC {
				bestAIC = a
				lag = l
			}
		}
	}

	y, cols := adfDesign(x, dx, lag, lag, ntrend)
	fit, ok := ols(y, cols)
	if !ok {
		return 0, lag, len(y), false, nil
	}
	return fit.tvalue(ntrend), lag, len(y), true, nil
}

// adfDesign builds the regression of Δx[t] on [const], x[t-1] and `lags`
// lagged differences, dropping the first `trim` differenced rows
func adfDesign(x, dx []float64, lags, trim, ntrend int) ([]float64, [][]float64) {
	rows := len(dx) - trim
	y := make([]float64, rows)
	cols := make([][]float64, 0, ntrend+1+lags)
	if ntrend == 1 {
		c := make([]float64, rows)
		for i := range c {
			c[i] = 1
		}
		cols = append(cols, c)
	}
	level := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := i + trim
		y[i] = dx[t]
		level[i] = x[t]
	}
	cols = append(cols, level)
	for l := 1; l <= lags; l++ {
		col := make([]float64, rows)
		for i := 0; i < rows; i++ {
			col[i] = dx[i+trim-l]
		}
		cols = append(cols, col)
	}
	return y, cols
}

// CointResult is the Engle-Granger two-step test outcome
type CointResult struct {
	Statistic  float64            `json:"statistic"`
	PValue     float64            `json:"p_value"`
	UsedLag    int                `json:"used_lag"`
	Critical   map[string]float64 `json:"critical_values"`
	Degenerate bool               `json:"degenerate"`
}

// EngleGranger tests a and b for cointegration: OLS of a on b with an
// intercept, then an ADF test without deterministic terms on the residuals.
// Perfectly collinear inputs report a statistic of -Inf and p-value 0.
func EngleGranger(a, b []float64) (CointResult, error) {
	fit, err := FitHedge(a, b)
	if err != nil {
		return CointResult{}, err
	}

	resid := make([]float64, len(a))
	for i := range a {
		resid[i] = a[i] - fit.Beta*b[i] - fit.Alpha
	}

	if !fit.Degenerate && 1-fit.RSquared < 1e-10 {
		return CointResult{Statistic: math.Inf(-1), PValue: 0, Critical: mackinnonCrit(2, len(a)-1), Degenerate: true}, nil
	}

	opts := DefaultADFOptions()
	opts.Trend = TrendNone
	stat, lag, _, ok, err := adfStatistic(resid, opts)
	if err != nil {
		return CointResult{}, err
	}
	if !ok {
		return CointResult{Statistic: math.NaN(), PValue: 1, Degenerate: true}, nil
	}
	return CointResult{
		Statistic: stat,
		PValue:    mackinnonP(stat, 2),
		UsedLag:   lag,
		Critical:  mackinnonCrit(2, len(a)-1),
	}, nil
}

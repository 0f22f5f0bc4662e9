package spread

import (
	"fmt"
	"math"

	"github.com/sawpanic/hedgehub/internal/series"
	"github.com/sawpanic/hedgehub/internal/stats"
)

// ReturnCorrelationWindows are the trailing windows reported in Diagnostics
var ReturnCorrelationWindows = []int{5, 10, 20, 30, 60}

// Build forms the spread series aligned 1:1 with the price rows
func Build(s *series.Aligned, hedge float64, kind Kind) []float64 {
	pa, pb := s.PricesA(), s.PricesB()
	out := make([]float64, len(pa))
	for i := range pa {
		switch kind {
		case KindLog:
			out[i] = math.Log(pa[i]) - math.Log(pb[i])
		default:
			out[i] = pa[i] - hedge*pb[i]
		}
	}
	return out
}

// Diagnose fits the hedge, builds the spread and runs the stationarity tests
func Diagnose(s *series.Aligned, cfg Config) (*Diagnostics, []float64, error) {
	pa, pb := s.PricesA(), s.PricesB()

	fit, err := stats.FitHedge(pa, pb)
	if err != nil {
		return nil, nil, fmt.Errorf("hedge ratio: %w", err)
	}

	spr := Build(s, fit.Beta, cfg.Kind)
	mean, std := stats.MeanStd(spr)
	hl := stats.HalfLife(spr)

	d := &Diagnostics{
		TickerA:        s.TickerA(),
		TickerB:        s.TickerB(),
		Kind:           cfg.Kind,
		HedgeRatio:     fit.Beta,
		HedgeIntercept: fit.Alpha,
		HedgeRSquared:  fit.RSquared,
		HedgeFallback:  fit.Degenerate,
		Correlation:    stats.Correlation(pa, pb),
		HalfLife:       hl.HalfLife,
		ARCoeff:        hl.Rho,
		Mean:           mean,
		Std:            std,
		Cutoff:         cfg.PValueCutoff,
		NObs:           s.Len(),
	}

	ra, rb := s.Returns()
	d.ReturnCorrelations = make(map[int]float64, len(ReturnCorrelationWindows))
	for _, w := range ReturnCorrelationWindows {
		d.ReturnCorrelations[w] = stats.RollingCorrelation(ra, rb, w)
	}

	adf, err := stats.ADF(spr, stats.DefaultADFOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("adf test: %w", err)
	}
	d.ADFStatistic = adf.Statistic
	d.ADFPValue = adf.PValue
	d.ADFUsedLag = adf.UsedLag
	d.ADFCritical = adf.Critical
	d.PValue = adf.PValue
	d.TestUsed = "adf"

	if cfg.UseCointegration {
		ca, cb := pa, pb
		if cfg.Kind == KindLog {
			ca, cb = logPrices(pa), logPrices(pb)
		}
		coint, err := stats.EngleGranger(ca, cb)
		if err != nil {
			return nil, nil, fmt.Errorf("cointegration test: %w", err)
		}
		d.CointStatistic = coint.Statistic
		d.CointPValue = coint.PValue
		d.CointCritical = coint.Critical
		d.PValue = coint.PValue
		d.TestUsed = "engle_granger"
	} else {
		d.CointStatistic = adf.Statistic
		d.CointPValue = adf.PValue
	}

	d.Eligible = d.PValue < cfg.PValueCutoff
	return d, spr, nil
}

// MaxHoldingPeriods bounds a trade's life at multiplier*halfLife periods,
// falling back when the half-life is not a usable positive number
func MaxHoldingPeriods(halfLife, multiplier float64, fallback int) int {
	if math.IsNaN(halfLife) || math.IsInf(halfLife, 0) || halfLife <= 0 || multiplier <= 0 {
		return fallback
	}
	limit := math.Ceil(multiplier * halfLife)
	if limit > math.MaxInt32 {
		return math.MaxInt32
	}
	if limit < 1 {
		return 1
	}
	return int(limit)
}

func logPrices(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = math.Log(v)
	}
	return out
}

package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// variance is the sample variance, 0 for fewer than two points
func variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	v := stat.Variance(x, nil)
	if math.IsNaN(v) || v < 1e-300 {
		return 0
	}
	return v
}

// NearlyConstant reports whether x has no variation beyond floating-point
// noise relative to its magnitude
func NearlyConstant(x []float64) bool {
	if len(x) < 2 {
		return true
	}
	scale := 1.0
	for _, v := range x {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	return math.Sqrt(variance(x)) <= 1e-12*scale
}

// MeanStd returns the sample mean and standard deviation (ddof = 1)
func MeanStd(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return mean(x), math.Sqrt(variance(x))
}

// RollingMeanStd computes trailing-window mean and sample standard deviation.
// The first window-1 entries are NaN.
func RollingMeanStd(x []float64, window int) (means, stds []float64) {
	means = make([]float64, len(x))
	stds = make([]float64, len(x))
	for i := range x {
		if i+1 < window {
			means[i] = math.NaN()
			stds[i] = math.NaN()
			continue
		}
		means[i], stds[i] = MeanStd(x[i+1-window : i+1])
	}
	return means, stds
}

// Skew is the sample skewness, 0 for degenerate input
func Skew(x []float64) float64 {
	if len(x) < 3 || variance(x) == 0 {
		return 0
	}
	return stat.Skew(x, nil)
}

// ExcessKurtosis is the sample excess kurtosis, 0 for degenerate input
func ExcessKurtosis(x []float64) float64 {
	if len(x) < 4 || variance(x) == 0 {
		return 0
	}
	return stat.ExKurtosis(x, nil)
}

// Quantile returns the p-quantile with linear interpolation between the
// closest ranks, h = (n-1)p
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[len(sorted)-1]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Diff returns x[t]-x[t-1]
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

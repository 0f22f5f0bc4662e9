// Package normalize turns a spread into z-scores against either whole-sample
// or trailing-window reference statistics.
package normalize

import (
	"fmt"
	"math"

	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/stats"
)

// Mode selects the reference statistics
type Mode string

const (
	ModeGlobal  Mode = "global"
	ModeRolling Mode = "rolling"
)

// DefaultWindow is the conventional rolling length
const DefaultWindow = 20

// ParseMode accepts "global", "rolling" or empty (global)
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeGlobal:
		return ModeGlobal, nil
	case ModeRolling:
		return ModeRolling, nil
	default:
		return "", fmt.Errorf("unknown z-score mode %q", s)
	}
}

// ZScores holds the normalized spread and the reference statistics used at
// each point. Undefined points are NaN.
type ZScores struct {
	Values []float64
	Means  []float64
	Stds   []float64
	Mode   Mode
	Window int
}

// FirstDefined returns the first index with a defined z-score, -1 if none
func (z ZScores) FirstDefined() int {
	for i, v := range z.Values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// Last returns the final z-score, NaN for an empty series
func (z ZScores) Last() float64 {
	if len(z.Values) == 0 {
		return math.NaN()
	}
	return z.Values[len(z.Values)-1]
}

// Global standardizes against the whole-sample mean and sample standard
// deviation. A zero deviation gives all zeros.
func Global(spread []float64) ZScores {
	mean, std := stats.MeanStd(spread)
	if stats.NearlyConstant(spread) {
		std = 0
	}
	out := ZScores{
		Values: make([]float64, len(spread)),
		Means:  make([]float64, len(spread)),
		Stds:   make([]float64, len(spread)),
		Mode:   ModeGlobal,
	}
	for i, s := range spread {
		out.Means[i] = mean
		out.Stds[i] = std
		out.Values[i] = standardize(s, mean, std)
	}
	return out
}

// Rolling standardizes each point against the trailing window ending at it.
// The first window-1 points are NaN.
func Rolling(spread []float64, window int) (ZScores, error) {
	if window < 2 {
		return ZScores{}, errs.Invalid("zscore_window", "must be at least 2, got %d", window)
	}
	means, stds := stats.RollingMeanStd(spread, window)
	out := ZScores{
		Values: make([]float64, len(spread)),
		Means:  means,
		Stds:   stds,
		Mode:   ModeRolling,
		Window: window,
	}
	for i, s := range spread {
		if math.IsNaN(means[i]) {
			out.Values[i] = math.NaN()
			continue
		}
		if stats.NearlyConstant(spread[i+1-window : i+1]) {
			stds[i] = 0
		}
		out.Values[i] = standardize(s, means[i], stds[i])
	}
	return out, nil
}

// Compute dispatches on mode
func Compute(spread []float64, mode Mode, window int) (ZScores, error) {
	if mode == ModeRolling {
		return Rolling(spread, window)
	}
	return Global(spread), nil
}

func standardize(x, mean, std float64) float64 {
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (x - mean) / std
}

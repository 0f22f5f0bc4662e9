package analysis

import (
	"time"

	"github.com/sawpanic/hedgehub/internal/backtest"
)

// Recorder receives run telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveRun(outcome string, elapsed time.Duration)
	ObserveEligibility(pair string, eligible bool)
	ObserveTrades(blotter []backtest.BlotterRow)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) ObserveRun(string, time.Duration) {}
func (NopRecorder) ObserveEligibility(string, bool) {}
func (NopRecorder) ObserveTrades([]backtest.BlotterRow) {}

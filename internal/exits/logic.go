package exits

import (
	"fmt"
	"math"
	"time"
)

// ExitReason represents the reason a spread trade was closed
type ExitReason int

const (
	NoExit        ExitReason = iota
	StopLoss                 // Highest precedence: trade loss breached the capital fraction
	MeanReversion            // Spread z-score back inside the exit band
	TimeStop                 // Held for the maximum number of periods
	EndOfSample              // Forced close at the final observation
)

func (er ExitReason) String() string {
	switch er {
	case NoExit:
		return "NoExit"
	case StopLoss:
		return "StopLoss"
	case MeanReversion:
		return "MeanReversion"
	case TimeStop:
		return "TimeStop"
	case EndOfSample:
		return "EndOfSample"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the reason by name
func (er ExitReason) MarshalText() ([]byte, error) {
	return []byte(er.String()), nil
}

// UnmarshalText decodes a reason name
func (er *ExitReason) UnmarshalText(b []byte) error {
	r, err := ParseExitReason(string(b))
	if err != nil {
		return err
	}
	*er = r
	return nil
}

// ParseExitReason maps a reason name back to its value
func ParseExitReason(s string) (ExitReason, error) {
	for _, r := range []ExitReason{NoExit, StopLoss, MeanReversion, TimeStop, EndOfSample} {
		if r.String() == s {
			return r, nil
		}
	}
	return NoExit, fmt.Errorf("unknown exit reason %q", s)
}

// ExitResult contains the exit evaluation outcome
type ExitResult struct {
	Timestamp   time.Time  `json:"timestamp"`
	ShouldExit  bool       `json:"should_exit"`
	ExitReason  ExitReason `json:"exit_reason"`
	TriggeredBy string     `json:"triggered_by"`
	TradePnL    float64    `json:"trade_pnl"`
	HeldPeriods int        `json:"held_periods"`
}

// ExitInputs contains the state of an open trade at one timestep
type ExitInputs struct {
	CurrentTime    time.Time `json:"current_time"`
	Z              float64   `json:"z"`
	TradePnL       float64   `json:"trade_pnl"`        // unrealized PnL since entry
	CapitalAtEntry float64   `json:"capital_at_entry"` // equity when the trade opened
	HeldPeriods    int       `json:"held_periods"`     // observations since entry
	MaxHolding     int       `json:"max_holding"`      // overrides the configured default when > 0
}

// ExitConfig contains exit rule configuration
type ExitConfig struct {
	ExitZ             float64 `yaml:"exit_z"`
	StopLossFraction  float64 `yaml:"stop_loss_fraction"`
	MaxHoldingPeriods int     `yaml:"max_holding_periods"`

	EnableStopLoss bool `yaml:"enable_stop_loss"`
	EnableTimeStop bool `yaml:"enable_time_stop"`
}

// DefaultExitConfig returns the exit configuration used when none is supplied
func DefaultExitConfig() *ExitConfig {
	return &ExitConfig{
		ExitZ:             0.5,
		StopLossFraction:  0.05, // 5% of capital at entry
		MaxHoldingPeriods: 20,
		EnableStopLoss:    true,
		EnableTimeStop:    true,
	}
}

// ExitEvaluator evaluates exit conditions with proper precedence
type ExitEvaluator struct {
	config *ExitConfig
}

// NewExitEvaluator creates a new exit evaluator
func NewExitEvaluator(config *ExitConfig) *ExitEvaluator {
	if config == nil {
		config = DefaultExitConfig()
	}
	return &ExitEvaluator{config: config}
}

// EvaluateExit checks the exit rules in precedence order. The first rule
// that fires wins and later rules are not consulted.
func (ee *ExitEvaluator) EvaluateExit(inputs ExitInputs) ExitResult {
	result := ExitResult{
		Timestamp:   inputs.CurrentTime,
		ExitReason:  NoExit,
		TradePnL:    inputs.TradePnL,
		HeldPeriods: inputs.HeldPeriods,
	}

	// 1. Stop loss (highest precedence)
	if ee.config.EnableStopLoss && ee.evaluateStopLoss(inputs) {
		result.ShouldExit = true
		result.ExitReason = StopLoss
		result.TriggeredBy = fmt.Sprintf("trade pnl %.2f <= -%.2f%% of %.2f",
			inputs.TradePnL, ee.config.StopLossFraction*100, inputs.CapitalAtEntry)
		return result
	}

	// 2. Mean reversion
	if ee.evaluateMeanReversion(inputs) {
		result.ShouldExit = true
		result.ExitReason = MeanReversion
		result.TriggeredBy = fmt.Sprintf("|z| %.4f <= exit band %.4f", math.Abs(inputs.Z), ee.config.ExitZ)
		return result
	}

	// 3. Time stop
	if ee.config.EnableTimeStop && ee.evaluateTimeStop(inputs) {
		result.ShouldExit = true
		result.ExitReason = TimeStop
		result.TriggeredBy = fmt.Sprintf("held %d periods >= limit %d", inputs.HeldPeriods, ee.maxHolding(inputs))
	}

	return result
}

// evaluateStopLoss checks if the trade loss reached the configured capital fraction
func (ee *ExitEvaluator) evaluateStopLoss(inputs ExitInputs) bool {
	if ee.config.StopLossFraction <= 0 || inputs.CapitalAtEntry <= 0 {
		return false
	}
	return inputs.TradePnL <= -ee.config.StopLossFraction*inputs.CapitalAtEntry
}

// evaluateMeanReversion checks if the spread has returned inside the exit band.
// An undefined z-score never triggers.
func (ee *ExitEvaluator) evaluateMeanReversion(inputs ExitInputs) bool {
	if math.IsNaN(inputs.Z) {
		return false
	}
	return math.Abs(inputs.Z) <= ee.config.ExitZ
}

// evaluateTimeStop checks if maximum holding time is reached
func (ee *ExitEvaluator) evaluateTimeStop(inputs ExitInputs) bool {
	limit := ee.maxHolding(inputs)
	return limit > 0 && inputs.HeldPeriods >= limit
}

func (ee *ExitEvaluator) maxHolding(inputs ExitInputs) int {
	if inputs.MaxHolding > 0 {
		return inputs.MaxHolding
	}
	return ee.config.MaxHoldingPeriods
}

// GetExitSummary returns a concise exit evaluation summary
func (er ExitResult) GetExitSummary() string {
	if er.ShouldExit {
		return fmt.Sprintf("EXIT %s: %s (pnl %.2f after %d periods)",
			er.ExitReason, er.TriggeredBy, er.TradePnL, er.HeldPeriods)
	}
	return fmt.Sprintf("HOLD: pnl %.2f after %d periods", er.TradePnL, er.HeldPeriods)
}

package exits

import (
	"math"
	"testing"
	"time"
)

func TestExitEvaluator_NoExit(t *testing.T) {
	evaluator := NewExitEvaluator(DefaultExitConfig())

	result := evaluator.EvaluateExit(ExitInputs{
		CurrentTime:    time.Now(),
		Z:              1.8,
		TradePnL:       -1200,
		CapitalAtEntry: 100000,
		HeldPeriods:    3,
	})

	if result.ShouldExit {
		t.Fatalf("Expected no exit, got %s", result.GetExitSummary())
	}
	if result.ExitReason != NoExit {
		t.Errorf("Expected NoExit reason, got %s", result.ExitReason)
	}
}

func TestExitEvaluator_MeanReversion(t *testing.T) {
	evaluator := NewExitEvaluator(DefaultExitConfig())

	result := evaluator.EvaluateExit(ExitInputs{
		Z:              -0.3,
		TradePnL:       850,
		CapitalAtEntry: 100000,
		HeldPeriods:    4,
	})

	if !result.ShouldExit || result.ExitReason != MeanReversion {
		t.Fatalf("Expected MeanReversion exit, got %s", result.GetExitSummary())
	}
}

func TestExitEvaluator_StopLossBeatsReversionAndTime(t *testing.T) {
	evaluator := NewExitEvaluator(&ExitConfig{
		ExitZ:             0.5,
		StopLossFraction:  0.05,
		MaxHoldingPeriods: 10,
		EnableStopLoss:    true,
		EnableTimeStop:    true,
	})

	// every rule fires: loss of exactly 5%, z inside the band, holding limit reached
	result := evaluator.EvaluateExit(ExitInputs{
		Z:              0.1,
		TradePnL:       -5000,
		CapitalAtEntry: 100000,
		HeldPeriods:    12,
	})

	if result.ExitReason != StopLoss {
		t.Fatalf("Expected StopLoss to win, got %s", result.ExitReason)
	}
}

func TestExitEvaluator_ReversionBeatsTimeStop(t *testing.T) {
	evaluator := NewExitEvaluator(DefaultExitConfig())

	result := evaluator.EvaluateExit(ExitInputs{
		Z:              0.2,
		TradePnL:       100,
		CapitalAtEntry: 100000,
		HeldPeriods:    40,
	})

	if result.ExitReason != MeanReversion {
		t.Fatalf("Expected MeanReversion to win over TimeStop, got %s", result.ExitReason)
	}
}

func TestExitEvaluator_TimeStop(t *testing.T) {
	evaluator := NewExitEvaluator(DefaultExitConfig())

	tests := []struct {
		name       string
		held       int
		maxHolding int
		want       ExitReason
	}{
		{"below configured limit", 19, 0, NoExit},
		{"at configured limit", 20, 0, TimeStop},
		{"per-trade override", 7, 7, TimeStop},
		{"override not reached", 6, 7, NoExit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluator.EvaluateExit(ExitInputs{
				Z:              2.5,
				CapitalAtEntry: 100000,
				HeldPeriods:    tt.held,
				MaxHolding:     tt.maxHolding,
			})
			if result.ExitReason != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, result.ExitReason)
			}
		})
	}
}

func TestExitEvaluator_DisabledRules(t *testing.T) {
	cfg := DefaultExitConfig()
	cfg.EnableStopLoss = false
	cfg.EnableTimeStop = false
	evaluator := NewExitEvaluator(cfg)

	result := evaluator.EvaluateExit(ExitInputs{
		Z:              2.5,
		TradePnL:       -50000,
		CapitalAtEntry: 100000,
		HeldPeriods:    500,
	})

	if result.ShouldExit {
		t.Fatalf("Expected disabled rules to hold, got %s", result.GetExitSummary())
	}
}

func TestExitEvaluator_UndefinedZNeverReverts(t *testing.T) {
	evaluator := NewExitEvaluator(DefaultExitConfig())

	result := evaluator.EvaluateExit(ExitInputs{Z: math.NaN(), CapitalAtEntry: 100000, HeldPeriods: 1})
	if result.ShouldExit {
		t.Fatalf("Expected NaN z-score to hold, got %s", result.ExitReason)
	}
}

func TestExitReasonText(t *testing.T) {
	for _, r := range []ExitReason{NoExit, StopLoss, MeanReversion, TimeStop, EndOfSample} {
		b, err := r.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s): %v", r, err)
		}
		var back ExitReason
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", b, err)
		}
		if back != r {
			t.Errorf("Expected %s, got %s", r, back)
		}
	}

	if _, err := ParseExitReason("TakeProfit"); err == nil {
		t.Error("Expected error for unknown reason")
	}
}

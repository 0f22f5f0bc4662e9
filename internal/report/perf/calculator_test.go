package perf

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/hedgehub/internal/backtest"
	"github.com/sawpanic/hedgehub/internal/exits"
)

func ledgerOf(equity []float64, positions []backtest.Position) []backtest.LedgerRow {
	start := time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)
	rows := make([]backtest.LedgerRow, len(equity))
	for i, e := range equity {
		rows[i] = backtest.LedgerRow{Time: start.AddDate(0, 0, i), Equity: e, Cash: e}
		if positions != nil {
			rows[i].Position = positions[i]
		}
	}
	return rows
}

func TestCalculateEmptyLedger(t *testing.T) {
	m := NewPerfCalculator(DefaultPerfCalculatorConfig()).Calculate(nil, nil, 100000)

	require.NotNil(t, m)
	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 0, m.TradeCount)
	assert.Equal(t, 100000.0, m.FinalEquity)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.NotNil(t, m.ExitsByReason)
}

func TestCalculateReturnsAndDrawdown(t *testing.T) {
	ledger := ledgerOf([]float64{100, 110, 99, 121}, []backtest.Position{
		backtest.Flat, backtest.LongSpread, backtest.LongSpread, backtest.Flat,
	})
	m := NewPerfCalculator(DefaultPerfCalculatorConfig()).Calculate(ledger, nil, 100)

	assert.InDelta(t, 0.21, m.TotalReturn, 1e-12)
	assert.Equal(t, 3, m.Periods)
	assert.InDelta(t, math.Pow(1.21, 84)-1, m.AnnualizedReturn, 1e-6*math.Pow(1.21, 84))
	assert.InDelta(t, -0.1, m.MaxDrawdown, 1e-12)
	assert.Equal(t, 1, m.MaxDrawdownPeriods)
	assert.InDelta(t, 0.5, m.Exposure, 1e-12)
	assert.InDelta(t, 121.0/99-1, m.BestPeriod, 1e-12)
	assert.InDelta(t, -0.1, m.WorstPeriod, 1e-12)

	returns := []float64{0.1, -0.1, 121.0/99 - 1}
	mean := (returns[0] + returns[1] + returns[2]) / 3
	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	vol := math.Sqrt(ss/2) * math.Sqrt(252)
	assert.InDelta(t, vol, m.Volatility, 1e-9)
	assert.InDelta(t, m.AnnualizedReturn/vol, m.Sharpe, 1e-6)
	assert.Greater(t, m.Calmar, 0.0)

	require.Len(t, m.Monthly, 2)
	assert.Equal(t, "2024-01", m.Monthly[0].Month)
	assert.Equal(t, "2024-02", m.Monthly[1].Month)
}

func TestSharpeZeroWhenFlatEquity(t *testing.T) {
	m := NewPerfCalculator(DefaultPerfCalculatorConfig()).Calculate(ledgerOf([]float64{50, 50, 50}, nil), nil, 50)
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 0.0, m.AnnualizedReturn)
}

func TestTotalLossAnnualizesToMinusOne(t *testing.T) {
	m := NewPerfCalculator(DefaultPerfCalculatorConfig()).Calculate(ledgerOf([]float64{100, 40, -5}, nil), nil, 100)
	assert.Equal(t, -1.0, m.AnnualizedReturn)
}

func TestTradeStatistics(t *testing.T) {
	blotter := []backtest.BlotterRow{
		{PnL: 10, HoldingPeriods: 2, Reason: exits.MeanReversion},
		{PnL: -11, HoldingPeriods: 1, Reason: exits.StopLoss},
		{PnL: 22, HoldingPeriods: 6, Reason: exits.TimeStop},
		{PnL: 0, HoldingPeriods: 3, Reason: exits.EndOfSample},
	}
	m := NewPerfCalculator(DefaultPerfCalculatorConfig()).Calculate(ledgerOf([]float64{100, 121}, nil), blotter, 100)

	assert.Equal(t, 4, m.TradeCount)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.Equal(t, 22.0, m.BestTrade)
	assert.Equal(t, -11.0, m.WorstTrade)
	assert.Equal(t, 1, m.StopOutCount)
	assert.InDelta(t, 32.0/11.0, m.ProfitFactor, 1e-12)
	assert.InDelta(t, 3.0, m.AvgHoldingPeriods, 1e-12)
	assert.InDelta(t, 5.25, m.AvgTrade, 1e-12)
	assert.Equal(t, map[string]int{"MeanReversion": 1, "StopLoss": 1, "TimeStop": 1, "EndOfSample": 1}, m.ExitsByReason)
}

func TestCheckPerformanceAlerts(t *testing.T) {
	am := NewAlertManager(DefaultPerfCalculatorConfig())

	quiet := am.CheckPerformanceAlerts(&PerfMetrics{MaxDrawdown: -0.05})
	assert.Empty(t, quiet)

	alerts := am.CheckPerformanceAlerts(&PerfMetrics{
		MaxDrawdown:   -0.35,
		TradeCount:    4,
		WinningTrades: 1,
		LosingTrades:  3,
		WinRate:       0.25,
		ProfitFactor:  0.4,
		StopOutCount:  3,
		Sharpe:        -0.2,
	})
	summary := SummarizeAlerts(alerts)
	assert.Equal(t, 5, summary.TotalAlerts)
	assert.Equal(t, 2, summary.BySeverity["CRITICAL"])
	assert.Equal(t, "CRITICAL", summary.TopAlerts[0].Severity)
}

type recordingHandler struct{ got []Alert }

func (h *recordingHandler) SendAlert(a Alert) error { h.got = append(h.got, a); return nil }
func (h *recordingHandler) GetHandlerType() string  { return "recording" }

func TestSendAlerts(t *testing.T) {
	am := NewAlertManager(DefaultPerfCalculatorConfig())
	h := &recordingHandler{}
	am.AddHandler(h)
	require.NoError(t, am.SendAlerts([]Alert{{Type: "drawdown"}, {Type: "hit_rate"}}))
	assert.Len(t, h.got, 2)
}

func TestHistoricalVaRInterpolates(t *testing.T) {
	ledger := ledgerOf([]float64{100, 110, 99, 121}, nil)
	m := NewPerfCalculator(DefaultPerfCalculatorConfig()).Calculate(ledger, nil, 100)

	// returns sorted: -0.1, 0.1, 0.222; the 5% rank sits a tenth of the way up
	assert.InDelta(t, -0.08, m.VaR95, 1e-12)
	assert.InDelta(t, -0.1, m.CVaR95, 1e-12)
}

// Package perf reduces a simulation ledger and blotter into performance statistics
package perf

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/hedgehub/internal/backtest"
	"github.com/sawpanic/hedgehub/internal/exits"
	"github.com/sawpanic/hedgehub/internal/stats"
)

// PerfMetrics contains the performance analysis of one simulation
type PerfMetrics struct {
	// Capital
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`

	// Return Metrics
	TotalReturn      float64 `json:"total_return"`      // finalEquity/initialCapital - 1
	AnnualizedReturn float64 `json:"annualized_return"` // geometric, 252 periods per year
	Periods          int     `json:"periods"`           // number of period returns

	// Risk-Adjusted Metrics
	Volatility         float64 `json:"annualized_volatility"`
	DownsideVol        float64 `json:"downside_volatility"`
	Sharpe             float64 `json:"sharpe_ratio"`
	Sortino            float64 `json:"sortino_ratio"`
	Calmar             float64 `json:"calmar_ratio"`
	MaxDrawdown        float64 `json:"max_drawdown"` // negative fraction, 0 when equity never fell
	MaxDrawdownPeriods int     `json:"max_drawdown_periods"`

	// Distribution of period returns
	VaR95          float64 `json:"var_95"`  // 5% quantile of period returns
	CVaR95         float64 `json:"cvar_95"` // mean of returns at or below VaR95
	Skewness       float64 `json:"skewness"`
	ExcessKurtosis float64 `json:"excess_kurtosis"`
	BestPeriod     float64 `json:"best_period"`
	WorstPeriod    float64 `json:"worst_period"`
	Exposure       float64 `json:"exposure"` // fraction of ledger rows holding a position

	// Trade Analysis
	TradeCount        int            `json:"trade_count"`
	WinningTrades     int            `json:"winning_trades"`
	LosingTrades      int            `json:"losing_trades"`
	WinRate           float64        `json:"win_rate"`
	BestTrade         float64        `json:"best_trade"`
	WorstTrade        float64        `json:"worst_trade"`
	AvgTrade          float64        `json:"avg_trade"`
	ProfitFactor      float64        `json:"profit_factor"` // 0 when there are no losing trades
	AvgHoldingPeriods float64        `json:"avg_holding_periods"`
	StopOutCount      int            `json:"stop_out_count"`
	ExitsByReason     map[string]int `json:"exits_by_reason"`

	Monthly []MonthlyReturn `json:"monthly_returns,omitempty"`

	// Time Period
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// MonthlyReturn is the compounded return of one calendar month
type MonthlyReturn struct {
	Month  string  `json:"month"` // YYYY-MM
	Return float64 `json:"return"`
}

// PerfCalculatorConfig holds configuration for performance calculations
type PerfCalculatorConfig struct {
	// Risk-free rate subtracted in Sharpe and Sortino (default: 0)
	RiskFreeRate float64 `yaml:"risk_free_rate"`

	// Alert thresholds
	MinSharpeRatio float64 `yaml:"min_sharpe_ratio"` // Minimum acceptable Sharpe (default: 0.5)
	MaxDrawdown    float64 `yaml:"max_drawdown"`     // Maximum acceptable drawdown magnitude (default: 0.20)
	MinWinRate     float64 `yaml:"min_win_rate"`     // default: 0.40

	// Analysis settings
	TradingDaysPerYear int     `yaml:"trading_days_per_year"` // Trading days for annualization (default: 252)
	VaRConfidence      float64 `yaml:"var_confidence"`        // VaR confidence level (default: 0.95)
}

// DefaultPerfCalculatorConfig returns sensible defaults
func DefaultPerfCalculatorConfig() PerfCalculatorConfig {
	return PerfCalculatorConfig{
		RiskFreeRate:       0,
		MinSharpeRatio:     0.5,
		MaxDrawdown:        0.20,
		MinWinRate:         0.40,
		TradingDaysPerYear: 252,
		VaRConfidence:      0.95,
	}
}

// PerfCalculator computes performance metrics from a simulation
type PerfCalculator struct {
	config PerfCalculatorConfig
}

// NewPerfCalculator creates a new performance calculator
func NewPerfCalculator(config PerfCalculatorConfig) *PerfCalculator {
	if config.TradingDaysPerYear <= 0 {
		config.TradingDaysPerYear = 252
	}
	if config.VaRConfidence <= 0 || config.VaRConfidence >= 1 {
		config.VaRConfidence = 0.95
	}
	return &PerfCalculator{config: config}
}

// Calculate reduces the ledger and blotter. An empty ledger yields an
// all-zero record with FinalEquity equal to the initial capital.
func (pc *PerfCalculator) Calculate(ledger []backtest.LedgerRow, blotter []backtest.BlotterRow, initialCapital float64) *PerfMetrics {
	metrics := &PerfMetrics{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
		ExitsByReason:  make(map[string]int),
	}

	if len(ledger) > 0 {
		metrics.StartDate = ledger[0].Time
		metrics.EndDate = ledger[len(ledger)-1].Time
		metrics.FinalEquity = ledger[len(ledger)-1].Equity

		returns := periodReturns(ledger)
		pc.calculateReturnMetrics(returns, metrics)
		pc.calculateRiskMetrics(returns, metrics)
		calculateDrawdown(ledger, metrics)
		calculateExposure(ledger, metrics)
		metrics.Monthly = monthlyReturns(ledger)

		if metrics.MaxDrawdown < 0 {
			metrics.Calmar = metrics.AnnualizedReturn / math.Abs(metrics.MaxDrawdown)
		}
	}

	calculateTradeAnalysis(blotter, metrics)
	return metrics
}

// periodReturns are simple returns between consecutive ledger equities
func periodReturns(ledger []backtest.LedgerRow) []float64 {
	if len(ledger) < 2 {
		return nil
	}
	out := make([]float64, 0, len(ledger)-1)
	for i := 1; i < len(ledger); i++ {
		prev := ledger[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, ledger[i].Equity/prev-1)
	}
	return out
}

// calculateReturnMetrics computes return-based metrics
func (pc *PerfCalculator) calculateReturnMetrics(returns []float64, metrics *PerfMetrics) {
	if metrics.InitialCapital > 0 {
		metrics.TotalReturn = metrics.FinalEquity/metrics.InitialCapital - 1
	}
	metrics.Periods = len(returns)
	if metrics.Periods == 0 {
		return
	}

	growth := 1 + metrics.TotalReturn
	if growth <= 0 {
		metrics.AnnualizedReturn = -1
		return
	}
	metrics.AnnualizedReturn = math.Pow(growth, float64(pc.config.TradingDaysPerYear)/float64(metrics.Periods)) - 1
}

// calculateRiskMetrics computes volatility, Sharpe, Sortino and the return distribution
func (pc *PerfCalculator) calculateRiskMetrics(returns []float64, metrics *PerfMetrics) {
	if len(returns) == 0 {
		return
	}
	annualizer := math.Sqrt(float64(pc.config.TradingDaysPerYear))

	_, std := stats.MeanStd(returns)
	metrics.Volatility = std * annualizer

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	metrics.DownsideVol = math.Sqrt(downside/float64(len(returns))) * annualizer

	excess := metrics.AnnualizedReturn - pc.config.RiskFreeRate
	if metrics.Volatility > 0 {
		metrics.Sharpe = excess / metrics.Volatility
	}
	if metrics.DownsideVol > 0 {
		metrics.Sortino = excess / metrics.DownsideVol
	}

	// historical VaR, interpolated between the closest ranks
	tail := 1 - pc.config.VaRConfidence
	metrics.VaR95 = stats.Quantile(returns, tail)
	sum, n := 0.0, 0
	for _, r := range returns {
		if r <= metrics.VaR95 {
			sum += r
			n++
		}
	}
	if n > 0 {
		metrics.CVaR95 = sum / float64(n)
	}

	metrics.Skewness = stats.Skew(returns)
	metrics.ExcessKurtosis = stats.ExcessKurtosis(returns)
	metrics.BestPeriod, metrics.WorstPeriod = returns[0], returns[0]
	for _, r := range returns[1:] {
		metrics.BestPeriod = math.Max(metrics.BestPeriod, r)
		metrics.WorstPeriod = math.Min(metrics.WorstPeriod, r)
	}
}

// calculateDrawdown finds min(equity/runningMax - 1) and the length of the
// drawdown that produced it
func calculateDrawdown(ledger []backtest.LedgerRow, metrics *PerfMetrics) {
	peak := ledger[0].Equity
	peakIdx := 0
	for i, row := range ledger {
		if row.Equity > peak {
			peak = row.Equity
			peakIdx = i
			continue
		}
		if peak <= 0 {
			continue
		}
		if dd := row.Equity/peak - 1; dd < metrics.MaxDrawdown {
			metrics.MaxDrawdown = dd
			metrics.MaxDrawdownPeriods = i - peakIdx
		}
	}
}

func calculateExposure(ledger []backtest.LedgerRow, metrics *PerfMetrics) {
	held := 0
	for _, row := range ledger {
		if row.Position != backtest.Flat {
			held++
		}
	}
	metrics.Exposure = float64(held) / float64(len(ledger))
}

// monthlyReturns compounds ledger equity by calendar month, measured from the
// last equity of the previous month
func monthlyReturns(ledger []backtest.LedgerRow) []MonthlyReturn {
	type bucket struct{ open, close float64 }
	buckets := make(map[string]*bucket)
	var order []string

	prev := ledger[0].Equity
	for _, row := range ledger {
		key := row.Time.UTC().Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{open: prev}
			buckets[key] = b
			order = append(order, key)
		}
		b.close = row.Equity
		prev = row.Equity
	}

	sort.Strings(order)
	out := make([]MonthlyReturn, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		r := 0.0
		if b.open != 0 {
			r = b.close/b.open - 1
		}
		out = append(out, MonthlyReturn{Month: key, Return: r})
	}
	return out
}

// calculateTradeAnalysis computes trade-level statistics from the blotter
func calculateTradeAnalysis(blotter []backtest.BlotterRow, metrics *PerfMetrics) {
	metrics.TradeCount = len(blotter)
	if len(blotter) == 0 {
		return
	}

	grossProfit, grossLoss, total, held := 0.0, 0.0, 0.0, 0
	metrics.BestTrade, metrics.WorstTrade = blotter[0].PnL, blotter[0].PnL
	for _, trade := range blotter {
		total += trade.PnL
		held += trade.HoldingPeriods
		metrics.BestTrade = math.Max(metrics.BestTrade, trade.PnL)
		metrics.WorstTrade = math.Min(metrics.WorstTrade, trade.PnL)
		metrics.ExitsByReason[trade.Reason.String()]++

		switch {
		case trade.PnL > 0:
			metrics.WinningTrades++
			grossProfit += trade.PnL
		case trade.PnL < 0:
			metrics.LosingTrades++
			grossLoss -= trade.PnL
		}
		if trade.Reason == exits.StopLoss {
			metrics.StopOutCount++
		}
	}

	n := float64(len(blotter))
	metrics.WinRate = float64(metrics.WinningTrades) / n
	metrics.AvgTrade = total / n
	metrics.AvgHoldingPeriods = float64(held) / n
	if grossLoss > 0 {
		metrics.ProfitFactor = grossProfit / grossLoss
	}
}

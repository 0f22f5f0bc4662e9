package perf

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Alert flags a metric that breached its configured quality threshold
type Alert struct {
	Type      string                 `json:"type"`     // performance, drawdown, hit_rate, stop_outs, profit_factor
	Severity  string                 `json:"severity"` // CRITICAL, WARNING, INFO
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"` // end of the analysed period
	Metric    string                 `json:"metric"`
	Value     float64                `json:"value"`
	Threshold float64                `json:"threshold"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// AlertManager checks metrics against thresholds and fans alerts out to handlers
type AlertManager struct {
	config   PerfCalculatorConfig
	handlers []AlertHandler
}

// AlertHandler defines the interface for alert notification handlers
type AlertHandler interface {
	// SendAlert sends an alert notification
	SendAlert(alert Alert) error

	// GetHandlerType returns the handler type
	GetHandlerType() string
}

// NewAlertManager creates a new alert manager
func NewAlertManager(config PerfCalculatorConfig) *AlertManager {
	return &AlertManager{
		config:   config,
		handlers: make([]AlertHandler, 0),
	}
}

// AddHandler adds an alert handler
func (am *AlertManager) AddHandler(handler AlertHandler) {
	am.handlers = append(am.handlers, handler)
}

// CheckPerformanceAlerts checks performance metrics against thresholds.
// Runs without trades only get the drawdown check.
func (am *AlertManager) CheckPerformanceAlerts(metrics *PerfMetrics) []Alert {
	alerts := make([]Alert, 0)

	// Check maximum drawdown threshold
	if am.config.MaxDrawdown > 0 && -metrics.MaxDrawdown > am.config.MaxDrawdown {
		severity := "WARNING"
		if -metrics.MaxDrawdown > am.config.MaxDrawdown*1.5 { // 1.5x threshold = critical
			severity = "CRITICAL"
		}
		alerts = append(alerts, Alert{
			Type:      "drawdown",
			Severity:  severity,
			Message:   fmt.Sprintf("Maximum drawdown %.2f%% exceeds threshold of %.2f%%", -metrics.MaxDrawdown*100, am.config.MaxDrawdown*100),
			Timestamp: metrics.EndDate,
			Metric:    "max_drawdown",
			Value:     metrics.MaxDrawdown,
			Threshold: -am.config.MaxDrawdown,
			Context: map[string]interface{}{
				"drawdown_periods": metrics.MaxDrawdownPeriods,
				"volatility":       metrics.Volatility,
			},
		})
	}

	if metrics.TradeCount == 0 {
		return alerts
	}

	// Check Sharpe ratio threshold
	if metrics.Sharpe < am.config.MinSharpeRatio {
		alerts = append(alerts, Alert{
			Type:      "performance",
			Severity:  "WARNING",
			Message:   fmt.Sprintf("Sharpe ratio %.2f is below minimum threshold of %.2f", metrics.Sharpe, am.config.MinSharpeRatio),
			Timestamp: metrics.EndDate,
			Metric:    "sharpe_ratio",
			Value:     metrics.Sharpe,
			Threshold: am.config.MinSharpeRatio,
			Context: map[string]interface{}{
				"analysis_period": fmt.Sprintf("%s to %s", metrics.StartDate.Format("2006-01-02"), metrics.EndDate.Format("2006-01-02")),
				"total_trades":    metrics.TradeCount,
			},
		})
	}

	// Check hit rate degradation
	if metrics.WinRate < am.config.MinWinRate {
		alerts = append(alerts, Alert{
			Type:      "hit_rate",
			Severity:  "WARNING",
			Message:   fmt.Sprintf("Win rate %.2f%% is below %.2f%%", metrics.WinRate*100, am.config.MinWinRate*100),
			Timestamp: metrics.EndDate,
			Metric:    "win_rate",
			Value:     metrics.WinRate,
			Threshold: am.config.MinWinRate,
			Context: map[string]interface{}{
				"winning_trades": metrics.WinningTrades,
				"losing_trades":  metrics.LosingTrades,
				"total_trades":   metrics.TradeCount,
			},
		})
	}

	// Check profit factor
	if metrics.ProfitFactor < 1.0 && metrics.LosingTrades > 0 {
		alerts = append(alerts, Alert{
			Type:      "profit_factor",
			Severity:  "CRITICAL",
			Message:   fmt.Sprintf("Profit factor %.2f indicates net losses", metrics.ProfitFactor),
			Timestamp: metrics.EndDate,
			Metric:    "profit_factor",
			Value:     metrics.ProfitFactor,
			Threshold: 1.0,
			Context: map[string]interface{}{
				"best_trade":  metrics.BestTrade,
				"worst_trade": metrics.WorstTrade,
			},
		})
	}

	// More than half the closures hit the stop
	if metrics.StopOutCount*2 > metrics.TradeCount {
		alerts = append(alerts, Alert{
			Type:      "stop_outs",
			Severity:  "WARNING",
			Message:   fmt.Sprintf("%d of %d trades closed on the stop loss", metrics.StopOutCount, metrics.TradeCount),
			Timestamp: metrics.EndDate,
			Metric:    "stop_out_count",
			Value:     float64(metrics.StopOutCount),
			Threshold: float64(metrics.TradeCount) / 2,
		})
	}

	return alerts
}

// SendAlerts delivers every alert to every handler
func (am *AlertManager) SendAlerts(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var errors []error

	for _, alert := range alerts {
		for _, handler := range am.handlers {
			if err := handler.SendAlert(alert); err != nil {
				errors = append(errors, fmt.Errorf("handler %s failed: %v", handler.GetHandlerType(), err))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("alert delivery errors: %v", errors)
	}

	return nil
}

// LogHandler writes alerts to a zerolog logger
type LogHandler struct {
	Logger zerolog.Logger
}

// SendAlert logs the alert
func (h *LogHandler) SendAlert(alert Alert) error {
	ev := h.Logger.Warn()
	if alert.Severity == "CRITICAL" {
		ev = h.Logger.Error()
	}
	ev.Str("type", alert.Type).
		Str("metric", alert.Metric).
		Float64("value", alert.Value).
		Float64("threshold", alert.Threshold).
		Msg(alert.Message)
	return nil
}

// GetHandlerType returns handler type
func (h *LogHandler) GetHandlerType() string {
	return "log"
}

// AlertSummary contains summary statistics for alerts
type AlertSummary struct {
	TotalAlerts int            `json:"total_alerts"`
	BySeverity  map[string]int `json:"by_severity"`
	ByType      map[string]int `json:"by_type"`
	TopAlerts   []Alert        `json:"top_alerts"` // critical first, at most five
}

// SummarizeAlerts creates an alert summary
func SummarizeAlerts(alerts []Alert) AlertSummary {
	summary := AlertSummary{
		TotalAlerts: len(alerts),
		BySeverity:  make(map[string]int),
		ByType:      make(map[string]int),
		TopAlerts:   make([]Alert, 0),
	}

	for _, alert := range alerts {
		summary.BySeverity[alert.Severity]++
		summary.ByType[alert.Type]++
	}

	for _, severity := range []string{"CRITICAL", "WARNING"} {
		for _, alert := range alerts {
			if alert.Severity == severity && len(summary.TopAlerts) < 5 {
				summary.TopAlerts = append(summary.TopAlerts, alert)
			}
		}
	}

	return summary
}

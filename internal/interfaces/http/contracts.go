package http

import (
	"encoding/json"
	"time"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/series"
)

// AnalyzeRequest names a pair and either carries both histories inline or
// asks the server to load them from its price provider
type AnalyzeRequest struct {
	TickerA    string               `json:"ticker_a"`
	TickerB    string               `json:"ticker_b"`
	PricesA    []series.Observation `json:"prices_a,omitempty"`
	PricesB    []series.Observation `json:"prices_b,omitempty"`
	Volatility []series.Observation `json:"volatility,omitempty"`
	From       string               `json:"from,omitempty"` // YYYY-MM-DD, provider fetches only
	To         string               `json:"to,omitempty"`
	Config     json.RawMessage      `json:"config,omitempty"` // overlaid on the server defaults
}

// PlanRequest asks for a sized recommendation for an investable amount
type PlanRequest struct {
	AnalyzeRequest
	Amount    float64 `json:"amount"`
	RiskLevel string  `json:"risk_level"`
}

// PlanResponse pairs the plan with the analysis verdict it was built from
type PlanResponse struct {
	RunID    string               `json:"run_id"`
	Eligible bool                 `json:"eligible"`
	Signal   string               `json:"analysis_signal"`
	Plan     planner.StrategyPlan `json:"plan"`
}

// MomentumRequest asks for the ratio-breakout reading of a pair
type MomentumRequest struct {
	AnalyzeRequest
	HighQuantile float64 `json:"high_quantile"`
	LowQuantile  float64 `json:"low_quantile"`
}

// AnalyzeResponse is the full analysis result
type AnalyzeResponse = analysis.Result

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Field     string    `json:"field,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"` // "healthy" or "degraded"
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}

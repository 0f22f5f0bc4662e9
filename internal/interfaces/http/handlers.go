package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/providers"
	"github.com/sawpanic/hedgehub/internal/series"
	"github.com/sawpanic/hedgehub/internal/threshold"
)

// writeJSON writes JSON response with proper error handling
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.deps.Logger.Error().Err(err).Msg("Response encoding failed")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"json_encoding_failed"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes standardized error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message, field string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		Field:     field,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}

// writeFailure maps the error taxonomy onto HTTP statuses. Provider and
// internal failure detail is logged, never returned.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		s.writeError(w, r, http.StatusBadRequest, "invalid_input", verr.Error(), verr.Field)
	case errors.Is(err, errs.ErrInputValidation):
		s.writeError(w, r, http.StatusBadRequest, "invalid_input", err.Error(), "")
	case errors.Is(err, errs.ErrInsufficientData), errors.Is(err, providers.ErrNoData):
		s.writeError(w, r, http.StatusUnprocessableEntity, "insufficient_data", err.Error(), "")
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, "timeout", "The analysis did not finish in time", "")
	default:
		s.deps.Logger.Error().Err(err).Str("request_id", requestID(r)).Msg("Analysis failed")
		status := http.StatusInternalServerError
		if errors.Is(err, providers.ErrProviderUnavailable) {
			status = http.StatusBadGateway
		}
		s.writeError(w, r, status, "analysis_failed", errs.ErrAnalysisFailed.Error(), "")
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed_body", fmt.Sprintf("Request body is not valid JSON: %v", err), "")
		return false
	}
	return true
}

// buildRequest overlays the caller's config on the server defaults and
// fills in missing histories from the provider
func (s *Server) buildRequest(ctx context.Context, in AnalyzeRequest) (analysis.Request, error) {
	cfg := s.deps.Defaults
	cfg.Bands = append([]threshold.Band(nil), cfg.Bands...)
	if len(in.Config) > 0 && string(in.Config) != "null" {
		if err := json.Unmarshal(in.Config, &cfg); err != nil {
			return analysis.Request{}, errs.Invalid("config", "%v", err)
		}
	}
	req := analysis.Request{
		TickerA:    in.TickerA,
		TickerB:    in.TickerB,
		PricesA:    in.PricesA,
		PricesB:    in.PricesB,
		Volatility: in.Volatility,
		Config:     cfg,
	}
	if in.TickerA == "" || in.TickerB == "" {
		return req, errs.Invalid("ticker", "both ticker_a and ticker_b are required")
	}
	if len(in.PricesA) > 0 && len(in.PricesB) > 0 {
		return req, nil
	}
	if s.deps.Provider == nil {
		return req, errs.Invalid("prices", "prices_a and prices_b are required when no price provider is configured")
	}

	from, err := parseDay("from", in.From)
	if err != nil {
		return req, err
	}
	to, err := parseDay("to", in.To)
	if err != nil {
		return req, err
	}
	volTicker := ""
	if cfg.AdaptiveThreshold && len(in.Volatility) == 0 {
		volTicker = s.config.VolatilityTicker
	}

	hist, err := providers.FetchPair(ctx, s.deps.Provider, in.TickerA, in.TickerB, volTicker, from, to, s.deps.Logger)
	if err != nil {
		if errors.Is(err, providers.ErrNoData) || errors.Is(err, context.DeadlineExceeded) {
			return req, err
		}
		return req, errs.Failed(err)
	}
	req.PricesA, req.PricesB = hist.A, hist.B
	if volTicker != "" {
		req.Volatility = hist.Volatility
	}
	return req, nil
}

func parseDay(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errs.Invalid(field, "want YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var in AnalyzeRequest
	if !s.decode(w, r, &in) {
		return
	}
	req, err := s.buildRequest(r.Context(), in)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	res, err := s.deps.Engine.Analyze(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	var in PlanRequest
	if !s.decode(w, r, &in) {
		return
	}
	if in.Amount < 0 || math.IsNaN(in.Amount) {
		s.writeError(w, r, http.StatusBadRequest, "invalid_input", "amount must not be negative", "amount")
		return
	}
	level, ok := planner.ParseRiskLevel(in.RiskLevel)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "invalid_input",
			fmt.Sprintf("risk_level must be Low, Medium or High, got %q", in.RiskLevel), "risk_level")
		return
	}

	req, err := s.buildRequest(r.Context(), in.AnalyzeRequest)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	res, err := s.deps.Engine.Analyze(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	snap := res.Snapshot
	plan := s.deps.Planner.Plan(in.Amount, level, &snap)
	s.writeJSON(w, http.StatusOK, PlanResponse{
		RunID:    res.RunID,
		Eligible: res.Eligible,
		Signal:   res.Signal,
		Plan:     plan,
	})
}

func (s *Server) momentum(w http.ResponseWriter, r *http.Request) {
	var in MomentumRequest
	if !s.decode(w, r, &in) {
		return
	}
	if in.HighQuantile == 0 {
		in.HighQuantile = 0.9
	}
	if in.LowQuantile == 0 {
		in.LowQuantile = 0.1
	}
	req, err := s.buildRequest(r.Context(), in.AnalyzeRequest)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	aligned, err := series.Align(req.TickerA, req.PricesA, req.TickerB, req.PricesB)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	res, err := analysis.Momentum(aligned, in.HighQuantile, in.LowQuantile)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Version:   s.config.Version,
		Checks:    map[string]string{"engine": "ok"},
	}
	switch p := s.deps.Provider.(type) {
	case nil:
		resp.Checks["provider"] = "none"
	case interface{ State() string }:
		state := p.State()
		resp.Checks["provider"] = state
		if state == "open" {
			resp.Status = "degraded"
		}
	default:
		resp.Checks["provider"] = "ok"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist", "")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "The endpoint does not accept this method", "")
}

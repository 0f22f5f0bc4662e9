package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/hedgehub/internal/backtest"
	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/normalize"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/report/perf"
	"github.com/sawpanic/hedgehub/internal/series"
	"github.com/sawpanic/hedgehub/internal/spread"
	"github.com/sawpanic/hedgehub/internal/threshold"
)

// Request is one pair analysis with its own configuration
type Request struct {
	TickerA    string               `json:"ticker_a"`
	TickerB    string               `json:"ticker_b"`
	PricesA    []series.Observation `json:"prices_a"`
	PricesB    []series.Observation `json:"prices_b"`
	Volatility []series.Observation `json:"volatility,omitempty"` // only read by the adaptive threshold
	Config     Config               `json:"config"`
}

// Engine runs analyses. It keeps no per-run state, so a single Engine may
// serve concurrent requests.
type Engine struct {
	logger   zerolog.Logger
	recorder Recorder
	perf     perf.PerfCalculatorConfig
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets the telemetry sink
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithPerfConfig sets annualization and alert thresholds
func WithPerfConfig(c perf.PerfCalculatorConfig) Option {
	return func(e *Engine) { e.perf = c }
}

// NewEngine creates an engine with a no-op logger and recorder by default
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   zerolog.Nop(),
		recorder: NopRecorder{},
		perf:     perf.DefaultPerfCalculatorConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze validates the configuration, aligns the histories and runs the
// full pipeline. Configuration and data errors abort the run with no
// partial result; degenerate statistics fall back to defined values.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.analyze(ctx, req)
	e.recorder.ObserveRun(outcome(err), time.Since(start))
	if err != nil {
		e.logger.Warn().Err(err).Str("ticker_a", req.TickerA).Str("ticker_b", req.TickerB).Msg("Analysis aborted")
		return nil, err
	}
	e.recorder.ObserveEligibility(res.Diagnostics.TickerA+"/"+res.Diagnostics.TickerB, res.Eligible)
	e.recorder.ObserveTrades(res.Blotter)
	return res, nil
}

func (e *Engine) analyze(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config.normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := e.logger.With().Str("run_id", runID[:8]).Str("pair", req.TickerA+"/"+req.TickerB).Logger()

	aligned, err := series.Align(req.TickerA, req.PricesA, req.TickerB, req.PricesB)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("rows", aligned.Len()).Msg("Aligned price histories")

	return e.run(ctx, runID, aligned, req.Volatility, cfg, logger)
}

// AnalyzeAligned runs the pipeline over an already aligned history
func (e *Engine) AnalyzeAligned(ctx context.Context, aligned *series.Aligned, vol []series.Observation, cfg Config) (*Result, error) {
	start := time.Now()
	cfg = cfg.normalized()
	var res *Result
	err := cfg.Validate()
	if err == nil && aligned == nil {
		err = errs.Insufficient("align", series.MinObservations, 0)
	}
	if err == nil {
		runID := uuid.New().String()
		res, err = e.run(ctx, runID, aligned, vol, cfg, e.logger.With().Str("run_id", runID[:8]).Logger())
	}
	e.recorder.ObserveRun(outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	e.recorder.ObserveEligibility(aligned.TickerA()+"/"+aligned.TickerB(), res.Eligible)
	e.recorder.ObserveTrades(res.Blotter)
	return res, nil
}

func (e *Engine) run(ctx context.Context, runID string, aligned *series.Aligned, vol []series.Observation, cfg Config, logger zerolog.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Failed(err)
	}

	diag, spr, err := spread.Diagnose(aligned, spread.Config{
		Kind:             cfg.SpreadKind,
		PValueCutoff:     cfg.PValueCutoff,
		UseCointegration: cfg.UseCointegration,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Float64("hedge_ratio", diag.HedgeRatio).
		Float64("pvalue", diag.PValue).
		Float64("half_life", diag.HalfLife).
		Bool("eligible", diag.Eligible).
		Msg("Spread diagnostics")

	z, err := normalize.Compute(spr, cfg.ZScoreMode, cfg.ZScoreWindow)
	if err != nil {
		return nil, err
	}
	if len(spr) > 0 && z.FirstDefined() < 0 {
		return nil, errs.Insufficient("zscore window", cfg.ZScoreWindow, len(spr))
	}

	var thr threshold.Series
	if cfg.AdaptiveThreshold {
		thr = threshold.Adaptive(aligned.Times(), vol, cfg.EntryZ, cfg.Bands, cfg.FallbackVolLevel)
		if thr.Fallback {
			logger.Info().Float64("level", cfg.FallbackVolLevel).Msg("Volatility index unavailable, using fallback level")
		}
	} else {
		thr = threshold.Constant(aligned.Len(), cfg.EntryZ)
	}

	maxHolding := cfg.MaxHoldingPeriods
	if maxHolding == 0 {
		maxHolding = spread.MaxHoldingPeriods(diag.HalfLife, cfg.HoldingMultiplier, cfg.FallbackHolding)
	}

	if err := ctx.Err(); err != nil {
		return nil, errs.Failed(err)
	}

	sim := backtest.NewSimulator(backtest.Config{
		InitialCapital:     cfg.InitialCapital,
		SharesPerTrade:     cfg.SharesPerTrade,
		AllocationFraction: cfg.AllocationFraction,
		ExitZ:              cfg.ExitZ,
		StopLossFraction:   cfg.StopLossFraction,
		MaxHoldingPeriods:  maxHolding,
		Seed:               aligned.TickerA() + "/" + aligned.TickerB(),
	}, logger)
	bt, err := sim.Run(backtest.Inputs{
		Times:             aligned.Times(),
		PricesA:           aligned.PricesA(),
		PricesB:           aligned.PricesB(),
		Spread:            spr,
		Z:                 z.Values,
		Thresholds:        thr.Values,
		HedgeRatio:        diag.HedgeRatio,
		MaxHoldingPeriods: maxHolding,
	})
	if err != nil {
		return nil, err
	}

	calc := perf.NewPerfCalculator(e.perf)
	metrics := calc.Calculate(bt.Ledger, bt.Blotter, cfg.InitialCapital)
	am := perf.NewAlertManager(e.perf)
	am.AddHandler(&perf.LogHandler{Logger: logger})
	alerts := am.CheckPerformanceAlerts(metrics)
	if err := am.SendAlerts(alerts); err != nil {
		logger.Warn().Err(err).Msg("Alert delivery failed")
	}

	last := aligned.Last()
	res := &Result{
		RunID:             runID,
		Eligible:          diag.Eligible,
		Diagnostics:       diag,
		HedgeRatio:        diag.HedgeRatio,
		Times:             aligned.Times(),
		Spread:            spr,
		ZScores:           z.Values,
		Thresholds:        thr,
		ExitThreshold:     cfg.ExitZ,
		MaxHoldingPeriods: maxHolding,
		Ledger:            bt.Ledger,
		Blotter:           bt.Blotter,
		Metrics:           metrics,
		Alerts:            alerts,
		AlertSummary:      perf.SummarizeAlerts(alerts),
		Config:            cfg,
		Snapshot: planner.Snapshot{
			TickerA:    aligned.TickerA(),
			TickerB:    aligned.TickerB(),
			Spread:     spr[len(spr)-1],
			Z:          z.Last(),
			HedgeRatio: diag.HedgeRatio,
			PriceA:     last.PriceA,
			PriceB:     last.PriceB,
		},
	}
	res.Signal, res.Explanation = deriveSignal(res, z)

	logger.Info().
		Str("signal", res.Signal).
		Bool("eligible", res.Eligible).
		Int("trades", metrics.TradeCount).
		Float64("total_return", metrics.TotalReturn).
		Float64("sharpe", metrics.Sharpe).
		Msg("Analysis complete")
	return res, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInputValidation):
		return "invalid_input"
	case errors.Is(err, errs.ErrInsufficientData):
		return "insufficient_data"
	default:
		return "failed"
	}
}

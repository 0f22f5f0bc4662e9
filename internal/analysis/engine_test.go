package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/hedgehub/internal/backtest"
	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/normalize"
	"github.com/sawpanic/hedgehub/internal/report/perf"
	"github.com/sawpanic/hedgehub/internal/series"
	"github.com/sawpanic/hedgehub/internal/threshold"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func history(prices []float64) []series.Observation {
	out := make([]series.Observation, len(prices))
	for i, p := range prices {
		out[i] = series.Observation{Time: day0.AddDate(0, 0, i), Price: p}
	}
	return out
}

// cointegratedPair is B as a random walk and A = 1.5*B + 10 + noise
func cointegratedPair(seed int64, n int) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	a, b = make([]float64, n), make([]float64, n)
	b[0] = 100
	for i := range b {
		if i > 0 {
			b[i] = b[i-1] + rng.NormFloat64()
		}
		a[i] = 1.5*b[i] + 10 + 2*rng.NormFloat64()
	}
	return a, b
}

func independentPair(seed int64, n int) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	a, b = make([]float64, n), make([]float64, n)
	a[0], b[0] = 200, 200
	for i := 1; i < n; i++ {
		a[i] = a[i-1] + 0.1 + rng.NormFloat64()
		b[i] = b[i-1] - 0.1 + rng.NormFloat64()
	}
	return a, b
}

func pairRequest(a, b []float64, cfg Config) Request {
	return Request{
		TickerA: "XLE",
		TickerB: "XOP",
		PricesA: history(a),
		PricesB: history(b),
		Config:  cfg,
	}
}

type spyRecorder struct {
	mu       sync.Mutex
	outcomes []string
	eligible map[string]bool
	trades   int
}

func (s *spyRecorder) ObserveRun(outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
}

func (s *spyRecorder) ObserveEligibility(pair string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eligible == nil {
		s.eligible = make(map[string]bool)
	}
	s.eligible[pair] = ok
}

func (s *spyRecorder) ObserveTrades(blotter []backtest.BlotterRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades += len(blotter)
}

func TestAnalyzeCointegratedPair(t *testing.T) {
	a, b := cointegratedPair(7, 400)
	spy := &spyRecorder{}
	engine := NewEngine(WithRecorder(spy))

	res, err := engine.Analyze(context.Background(), pairRequest(a, b, DefaultConfig()))
	require.NoError(t, err)

	assert.True(t, res.Eligible)
	assert.Equal(t, "engle_granger", res.Diagnostics.TestUsed)
	assert.InDelta(t, 1.5, res.HedgeRatio, 0.1)
	assert.Len(t, res.Spread, 400)
	assert.Len(t, res.ZScores, 400)
	assert.Len(t, res.Ledger, 400)
	assert.NotEqual(t, SignalCointegrationFail, res.Signal)
	assert.NotEmpty(t, res.Explanation)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, "XLE", res.Snapshot.TickerA)
	assert.Equal(t, a[len(a)-1], res.Snapshot.PriceA)
	assert.Equal(t, res.ZScores[len(res.ZScores)-1], res.Snapshot.Z)

	for _, tr := range res.Blotter {
		assert.False(t, tr.ExitTime.Before(tr.EntryTime))
	}
	last := res.Ledger[len(res.Ledger)-1]
	assert.Equal(t, backtest.Flat, last.Position)
	assert.InDelta(t, res.Metrics.FinalEquity, last.Equity, 1e-9)

	assert.Equal(t, []string{"ok"}, spy.outcomes)
	assert.True(t, spy.eligible["XLE/XOP"])
	assert.Equal(t, len(res.Blotter), spy.trades)
}

func TestAnalyzeIneligiblePairStillSimulates(t *testing.T) {
	a, b := independentPair(21, 300)
	cfg := DefaultConfig()
	cfg.PValueCutoff = 0.001

	res, err := NewEngine().Analyze(context.Background(), pairRequest(a, b, cfg))
	require.NoError(t, err)

	assert.False(t, res.Eligible)
	assert.Equal(t, SignalCointegrationFail, res.Signal)
	assert.Contains(t, res.Explanation, "Engle-Granger")
	assert.NotEmpty(t, res.Ledger)
	assert.NotNil(t, res.Metrics)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a, b := cointegratedPair(3, 300)
	req := pairRequest(a, b, DefaultConfig())
	engine := NewEngine()

	first, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Ledger, second.Ledger)
	assert.Equal(t, first.Blotter, second.Blotter)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.Signal, second.Signal)
}

func TestAnalyzeRejectsInvalidConfig(t *testing.T) {
	a, b := cointegratedPair(5, 100)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero entry", func(c *Config) { c.EntryZ = 0 }, "entry_z"},
		{"exit equals entry", func(c *Config) { c.ExitZ = c.EntryZ }, "exit_z"},
		{"exit above entry", func(c *Config) { c.ExitZ = 3 }, "exit_z"},
		{"pvalue cutoff of one", func(c *Config) { c.PValueCutoff = 1 }, "pvalue_cutoff"},
		{"negative capital", func(c *Config) { c.InitialCapital = -1 }, "initial_capital"},
		{"allocation above one", func(c *Config) { c.AllocationFraction = 1.5 }, "allocation_fraction"},
		{"zero stop", func(c *Config) { c.StopLossFraction = 0 }, "stop_loss_fraction"},
		{"unknown spread kind", func(c *Config) { c.SpreadKind = "ratio" }, "spread_kind"},
		{"rolling window of one", func(c *Config) {
			c.ZScoreMode = normalize.ModeRolling
			c.ZScoreWindow = 1
		}, "zscore_window"},
		{"unordered bands", func(c *Config) {
			c.AdaptiveThreshold = true
			c.Bands = []threshold.Band{{Below: 25, Multiplier: 2}, {Below: 20, Multiplier: 3}}
		}, "bands"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			spy := &spyRecorder{}

			res, err := NewEngine(WithRecorder(spy)).Analyze(context.Background(), pairRequest(a, b, cfg))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, errs.ErrInputValidation))

			var verr *errs.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, []string{"invalid_input"}, spy.outcomes)
		})
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	engine := NewEngine()

	t.Run("no overlap", func(t *testing.T) {
		req := pairRequest([]float64{10, 11, 12}, nil, DefaultConfig())
		req.PricesB = []series.Observation{{Time: day0.AddDate(1, 0, 0), Price: 5}}
		_, err := engine.Analyze(context.Background(), req)
		assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	})

	t.Run("too short for the stationarity test", func(t *testing.T) {
		req := pairRequest([]float64{10, 11, 12}, []float64{5, 6, 5}, DefaultConfig())
		_, err := engine.Analyze(context.Background(), req)
		assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	})

	t.Run("rolling window longer than history", func(t *testing.T) {
		a, b := cointegratedPair(9, 60)
		cfg := DefaultConfig()
		cfg.ZScoreMode = normalize.ModeRolling
		cfg.ZScoreWindow = 100
		_, err := engine.Analyze(context.Background(), pairRequest(a, b, cfg))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	})

	t.Run("nil aligned series", func(t *testing.T) {
		_, err := engine.AnalyzeAligned(context.Background(), nil, nil, DefaultConfig())
		assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	})
}

func TestAnalyzeCancelledContext(t *testing.T) {
	a, b := cointegratedPair(2, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Analyze(ctx, pairRequest(a, b, DefaultConfig()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAnalysisFailed))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAnalyzeAdaptiveThreshold(t *testing.T) {
	a, b := cointegratedPair(13, 200)
	cfg := DefaultConfig()
	cfg.AdaptiveThreshold = true
	cfg.Bands = nil

	vol := make([]float64, 200)
	for i := range vol {
		vol[i] = 15
		if i >= 100 {
			vol[i] = 35
		}
	}
	req := pairRequest(a, b, cfg)
	req.Volatility = history(vol)

	res, err := NewEngine().Analyze(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Thresholds.Values, 200)
	assert.True(t, res.Thresholds.Adaptive)
	assert.False(t, res.Thresholds.Fallback)
	assert.Equal(t, 2.0, res.Thresholds.Values[0])
	assert.Equal(t, 3.0, res.Thresholds.Values[199])
	assert.Equal(t, threshold.Calm, res.Thresholds.Regimes[0])
	assert.Equal(t, threshold.Crisis, res.Thresholds.Regimes[199])
	assert.Equal(t, 3.0, res.Ledger[len(res.Ledger)-1].Threshold)
}

func TestAnalyzeAdaptiveThresholdWithoutIndex(t *testing.T) {
	a, b := cointegratedPair(13, 120)
	cfg := DefaultConfig()
	cfg.AdaptiveThreshold = true

	res, err := NewEngine().Analyze(context.Background(), pairRequest(a, b, cfg))
	require.NoError(t, err)

	assert.True(t, res.Thresholds.Fallback)
	for _, v := range res.Thresholds.Values {
		assert.Equal(t, 2.0, v)
	}
}

func TestResultJSONHandlesUndefinedValues(t *testing.T) {
	a, b := cointegratedPair(17, 150)
	cfg := DefaultConfig()
	cfg.ZScoreMode = normalize.ModeRolling
	cfg.ZScoreWindow = 20
	cfg.AdaptiveThreshold = true

	res, err := NewEngine().Analyze(context.Background(), pairRequest(a, b, cfg))
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		ZScores []*float64 `json:"zscores"`
		Ledger  []struct {
			Z float64 `json:"zscore"`
		} `json:"ledger"`
		Config struct {
			Bands []threshold.Band `json:"bands"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Len(t, decoded.ZScores, 150)
	for i := 0; i < 19; i++ {
		assert.Nil(t, decoded.ZScores[i], "warm-up z-score %d", i)
	}
	assert.NotNil(t, decoded.ZScores[19])
	assert.Len(t, decoded.Ledger, 150-19)
	assert.Equal(t, threshold.DefaultBands(), decoded.Config.Bands)
}

func TestAnalyzeLogsAndSummarizesAlerts(t *testing.T) {
	a, b := cointegratedPair(7, 300)
	var buf bytes.Buffer
	pc := perf.DefaultPerfCalculatorConfig()
	pc.MinSharpeRatio = 1000
	engine := NewEngine(WithLogger(zerolog.New(&buf)), WithPerfConfig(pc))

	res, err := engine.Analyze(context.Background(), pairRequest(a, b, DefaultConfig()))
	require.NoError(t, err)

	require.NotEmpty(t, res.Alerts)
	assert.Equal(t, len(res.Alerts), res.AlertSummary.TotalAlerts)
	assert.Equal(t, 1, res.AlertSummary.ByType["performance"])
	assert.Contains(t, buf.String(), `"metric":"sharpe_ratio"`)
	assert.Contains(t, buf.String(), `"threshold":1000`)
}

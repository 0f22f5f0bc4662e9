package spread

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/hedgehub/internal/series"
	"github.com/sawpanic/hedgehub/internal/stats"
)

func makePair(t *testing.T, a, b []float64) *series.Aligned {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]series.PricePoint, len(a))
	for i := range a {
		rows[i] = series.PricePoint{Time: start.AddDate(0, 0, i), PriceA: a[i], PriceB: b[i]}
	}
	s, err := series.FromPoints("AAA", "BBB", rows)
	require.NoError(t, err)
	return s
}

func cointegratedPrices(seed int64, n int) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	b := make([]float64, n)
	a := make([]float64, n)
	b[0] = 100
	for i := 1; i < n; i++ {
		b[i] = b[i-1] + rng.NormFloat64()*0.5
	}
	noise := 0.0
	for i := range a {
		noise = 0.3*noise + rng.NormFloat64()
		a[i] = 1.5*b[i] + 20 + noise
	}
	return a, b
}

func TestBuildDifferenceAndLog(t *testing.T) {
	s := makePair(t, []float64{100, 110}, []float64{50, 55})

	diff := Build(s, 2, KindDifference)
	assert.Equal(t, []float64{0, 0}, diff)

	logs := Build(s, 2, KindLog)
	assert.InDelta(t, math.Log(2), logs[0], 1e-12)
	assert.InDelta(t, math.Log(2), logs[1], 1e-12)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindDifference, k)

	k, err = ParseKind("log")
	require.NoError(t, err)
	assert.Equal(t, KindLog, k)

	_, err = ParseKind("ratio")
	assert.Error(t, err)
}

func TestDiagnoseCointegratedPair(t *testing.T) {
	a, b := cointegratedPrices(5, 400)
	s := makePair(t, a, b)

	d, spr, err := Diagnose(s, DefaultConfig())
	require.NoError(t, err)

	assert.Len(t, spr, s.Len())
	assert.InDelta(t, 1.5, d.HedgeRatio, 0.1)
	assert.True(t, d.Eligible)
	assert.Equal(t, "engle_granger", d.TestUsed)
	assert.Less(t, d.PValue, 0.05)
	assert.Greater(t, d.Correlation, 0.9)
	assert.False(t, math.IsInf(d.HalfLife, 1))
	assert.Greater(t, d.HalfLife, 0.0)
	assert.Contains(t, d.ReturnCorrelations, 20)
	assert.Equal(t, "AAA", d.TickerA)
}

func TestDiagnoseADFOnly(t *testing.T) {
	a, b := cointegratedPrices(9, 300)
	s := makePair(t, a, b)

	cfg := DefaultConfig()
	cfg.UseCointegration = false
	d, _, err := Diagnose(s, cfg)
	require.NoError(t, err)

	assert.Equal(t, "adf", d.TestUsed)
	assert.Equal(t, d.ADFPValue, d.PValue)
	assert.Equal(t, d.PValue < cfg.PValueCutoff, d.Eligible)
}

func TestDiagnoseDegenerateSpread(t *testing.T) {
	a := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	s := makePair(t, a, a)

	d, spr, err := Diagnose(s, DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, d.HedgeRatio, 1e-9)
	assert.InDelta(t, 0.0, d.Std, 1e-9)
	for _, v := range spr {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
	assert.True(t, math.IsInf(d.HalfLife, 1))
}

func TestMaxHoldingPeriods(t *testing.T) {
	assert.Equal(t, 15, MaxHoldingPeriods(10, 1.5, 20))
	assert.Equal(t, 2, MaxHoldingPeriods(1.1, 1.5, 20))
	assert.Equal(t, 1, MaxHoldingPeriods(0.1, 1.5, 20))
	assert.Equal(t, 20, MaxHoldingPeriods(math.Inf(1), 1.5, 20))
	assert.Equal(t, 20, MaxHoldingPeriods(math.NaN(), 1.5, 20))
	assert.Equal(t, 20, MaxHoldingPeriods(-3, 1.5, 20))
	assert.Equal(t, math.MaxInt32, MaxHoldingPeriods(1e20, 1.5, 20))
	assert.Equal(t, math.MaxInt32, MaxHoldingPeriods(math.MaxFloat64/2, 1.5, 20))
}

func TestDiagnoseLogSpreadTestsLogPrices(t *testing.T) {
	a, b := cointegratedPrices(5, 400)
	s := makePair(t, a, b)

	cfg := DefaultConfig()
	cfg.Kind = KindLog
	d, _, err := Diagnose(s, cfg)
	require.NoError(t, err)

	la, lb := make([]float64, len(a)), make([]float64, len(b))
	for i := range a {
		la[i], lb[i] = math.Log(a[i]), math.Log(b[i])
	}
	want, err := stats.EngleGranger(la, lb)
	require.NoError(t, err)
	assert.Equal(t, want.Statistic, d.CointStatistic)
	assert.Equal(t, want.PValue, d.PValue)

	levels, err := stats.EngleGranger(a, b)
	require.NoError(t, err)
	assert.NotEqual(t, levels.Statistic, d.CointStatistic)
}

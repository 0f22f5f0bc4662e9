package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/backtest"
	"github.com/sawpanic/hedgehub/internal/exits"
	"github.com/sawpanic/hedgehub/internal/report/perf"
)

func sampleResult() *analysis.Result {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &analysis.Result{
		RunID:  "run-1",
		Signal: analysis.SignalNoTrade,
		Ledger: []backtest.LedgerRow{
			{Time: t0, Position: backtest.Flat, Cash: 100000, Equity: 100000},
			{Time: t0.AddDate(0, 0, 1), Position: backtest.LongSpread, QtyA: 100, QtyB: -150, Equity: 100250, PnL: 250},
		},
		Blotter: []backtest.BlotterRow{
			{ID: "t-1", Direction: backtest.LongSpread, EntryTime: t0, ExitTime: t0.AddDate(0, 0, 1), HoldingPeriods: 1, PnL: 250, Reason: exits.MeanReversion},
		},
		Metrics: &perf.PerfMetrics{TradeCount: 1},
	}
}

func TestWriteCreatesAllFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "run")

	files, err := Write(dir, sampleResult())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, ResultFile),
		filepath.Join(dir, LedgerFile),
		filepath.Join(dir, BlotterFile),
	}, files)

	raw, err := os.ReadFile(filepath.Join(dir, ResultFile))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])

	f, err := os.Open(filepath.Join(dir, LedgerFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, []string{"2024-03-02", "LongSpread", "100", "-150"}, rows[2][:4])

	blotter, err := os.ReadFile(filepath.Join(dir, BlotterFile))
	require.NoError(t, err)
	assert.Contains(t, string(blotter), "t-1,LongSpread,2024-03-01,2024-03-02")
	assert.Contains(t, string(blotter), "MeanReversion")

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePairCSV(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(4))
	var a, b strings.Builder
	a.WriteString("date,close\n")
	b.WriteString("date,close\n")
	pb := 100.0
	day := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i > 0 {
			pb += rng.NormFloat64()
		}
		ts := day.AddDate(0, 0, i).Format("2006-01-02")
		fmt.Fprintf(&a, "%s,%.4f\n", ts, 1.5*pb+10+2*rng.NormFloat64())
		fmt.Fprintf(&b, "%s,%.4f\n", ts, pb)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "XLE.csv"), []byte(a.String()), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "XOP.csv"), []byte(b.String()), 0o600))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-format", "json", "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, appName+" "+version+"\n", out)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := writePairCSV(t, 250)

	out, err := run(t, "analyze", "xle", "xop", "--data-dir", dir, "--trades", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "XLE / XOP")
	assert.Contains(t, out, "Signal: ")
	assert.Contains(t, out, "Sharpe")

	out, err = run(t, "analyze", "XLE", "XOP", "--data-dir", dir, "--json", "--rolling-window", "30")
	require.NoError(t, err)
	var res struct {
		ZScores []*float64 `json:"zscores"`
		Config  struct {
			ZScoreWindow int `json:"zscore_window"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 30, res.Config.ZScoreWindow)
	assert.Nil(t, res.ZScores[0])
}

func TestAnalyzeCommandRejectsBadInput(t *testing.T) {
	dir := writePairCSV(t, 50)

	_, err := run(t, "analyze", "XLE", "XOP", "--data-dir", dir, "--exit-z", "3")
	assert.ErrorContains(t, err, "exit_z")

	_, err = run(t, "analyze", "XLE", "USO", "--data-dir", dir)
	assert.ErrorContains(t, err, "USO")

	_, err = run(t, "analyze", "XLE", "XOP", "--data-dir", dir, "--from", "March")
	assert.ErrorContains(t, err, "--from")
}

func TestPlanCommand(t *testing.T) {
	dir := writePairCSV(t, 200)

	out, err := run(t, "plan", "XLE", "XOP", "--data-dir", dir, "--amount", "20000", "--risk", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "High (entry ±1.50")
	assert.Contains(t, out, "13000.00")

	_, err = run(t, "plan", "XLE", "XOP", "--data-dir", dir, "--risk", "yolo")
	assert.ErrorContains(t, err, "--risk")
}

func TestMomentumCommand(t *testing.T) {
	dir := writePairCSV(t, 100)

	out, err := run(t, "momentum", "XLE", "XOP", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Ratio XLE/XOP")
}

func TestSetupLoggingRejectsUnknownValues(t *testing.T) {
	assert.Error(t, setupLogging(os.Stderr, "loud", "json"))
	assert.Error(t, setupLogging(os.Stderr, "info", "xml"))
	assert.NoError(t, setupLogging(os.Stderr, "warn", "auto"))
}

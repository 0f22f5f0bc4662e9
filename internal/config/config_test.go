package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/hedgehub/internal/errs"
	"github.com/sawpanic/hedgehub/internal/normalize"
	"github.com/sawpanic/hedgehub/internal/planner"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hedgehub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
analysis:
  entry_z: 2.5
  exit_z: 0.75
  zscore_mode: rolling
  zscore_window: 30
  adaptive_threshold: true
  bands:
    - {below: 18, multiplier: 2.0}
    - {below: .inf, multiplier: 2.8}
risk_presets:
  high: {entry_z: 1.25, exit_z: 0.25, allocation: 0.8}
provider:
  kind: http
  base_url: http://prices.local
  rps: 2
  burst: 4
  cache:
    enabled: true
    addr: redis:6379
    ttl_secs: 60
server:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Analysis.EntryZ)
	assert.Equal(t, 0.75, cfg.Analysis.ExitZ)
	assert.Equal(t, normalize.ModeRolling, cfg.Analysis.ZScoreMode)
	assert.Equal(t, 30, cfg.Analysis.ZScoreWindow)
	require.Len(t, cfg.Analysis.Bands, 2)
	assert.True(t, math.IsInf(cfg.Analysis.Bands[1].Below, 1))
	// untouched fields keep their defaults
	assert.Equal(t, 100000.0, cfg.Analysis.InitialCapital)
	assert.Equal(t, 0.05, cfg.Analysis.PValueCutoff)

	presets, err := cfg.Presets()
	require.NoError(t, err)
	assert.Equal(t, planner.Preset{EntryZ: 1.25, ExitZ: 0.25, Allocation: 0.8}, presets[planner.RiskHigh])
	assert.Equal(t, planner.DefaultPresets()[planner.RiskLow], presets[planner.RiskLow])

	assert.Equal(t, ProviderHTTP, cfg.Provider.Kind)
	assert.Equal(t, "VIX", cfg.Provider.VolatilityTicker)
	assert.Equal(t, uint32(5), cfg.Provider.Circuit.FailureThreshold)
	assert.True(t, cfg.Provider.Cache.Enabled)
	assert.Equal(t, "hedgehub:history:", cfg.Provider.Cache.Prefix)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"exit above entry", "analysis: {entry_z: 1.0, exit_z: 1.5}", "analysis"},
		{"unknown risk level", "risk_presets: {extreme: {entry_z: 3, exit_z: 1, allocation: 0.1}}", "unknown risk level"},
		{"preset exit above entry", "risk_presets: {low: {entry_z: 1, exit_z: 2, allocation: 0.1}}", "risk_presets.low"},
		{"unknown provider", "provider: {kind: ftp}", "unknown kind"},
		{"http without url", "provider: {kind: http}", "base_url"},
		{"cache without ttl", "provider: {cache: {enabled: true, ttl_secs: 0}}", "ttl_secs"},
		{"empty server addr", `server: {addr: ""}`, "addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAnalysisErrorKeepsTaxonomy(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: {stop_loss_fraction: -1}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInputValidation))
}

func TestLoadMissingAndMalformedFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(writeConfig(t, "analysis: [not, a, map]"))
	assert.ErrorContains(t, err, "failed to parse config")
}

// Package config loads the service and CLI configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/hedgehub/internal/analysis"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/report/perf"
)

// Config is the complete file layout
type Config struct {
	Analysis    analysis.Config           `yaml:"analysis"`
	RiskPresets map[string]planner.Preset `yaml:"risk_presets"` // keys are case-insensitive risk levels
	Performance perf.PerfCalculatorConfig `yaml:"performance"`
	Provider    ProviderConfig            `yaml:"provider"`
	Server      ServerConfig              `yaml:"server"`
}

// ServerConfig controls the HTTP surface
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutMS    int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS   int    `yaml:"write_timeout_ms"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"` // per-request analysis deadline
	MaxBodyBytes     int64  `yaml:"max_body_bytes"`
}

// Default returns the built-in configuration used when no file is given
func Default() *Config {
	return &Config{
		Analysis:    analysis.DefaultConfig(),
		Performance: perf.DefaultPerfCalculatorConfig(),
		Provider:    DefaultProviderConfig(),
		Server: ServerConfig{
			Addr:             ":8080",
			ReadTimeoutMS:    5000,
			WriteTimeoutMS:   30000,
			RequestTimeoutMS: 20000,
			MaxBodyBytes:     8 << 20,
		},
	}
}

// Load applies the defaults, overlays the YAML file at path and validates
// the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate ensures the configuration is valid and consistent
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if _, err := c.Presets(); err != nil {
		return err
	}

	p := c.Performance
	if p.TradingDaysPerYear <= 0 {
		return fmt.Errorf("performance: trading_days_per_year must be positive, got %d", p.TradingDaysPerYear)
	}
	if p.VaRConfidence <= 0 || p.VaRConfidence >= 1 {
		return fmt.Errorf("performance: var_confidence must be in (0, 1), got %v", p.VaRConfidence)
	}

	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server: addr cannot be empty")
	}
	if c.Server.RequestTimeoutMS <= 0 {
		return fmt.Errorf("server: request_timeout_ms must be positive, got %d", c.Server.RequestTimeoutMS)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server: max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}

// Presets merges the configured risk presets over the defaults. Keys are
// matched case-insensitively; an unknown level is an error.
func (c *Config) Presets() (planner.Presets, error) {
	out := planner.DefaultPresets()
	for key, preset := range c.RiskPresets {
		level, ok := planner.ParseRiskLevel(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("risk_presets: unknown risk level %q", key)
		}
		if err := preset.Validate(); err != nil {
			return nil, fmt.Errorf("risk_presets.%s: %w", key, err)
		}
		out[level] = preset
	}
	return out, nil
}

// RequestTimeout returns the per-request deadline
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the server read timeout
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the server write timeout
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

package config

import (
	"fmt"
	"time"
)

// Provider kinds
const (
	ProviderCSV  = "csv"
	ProviderHTTP = "http"
)

// ProviderConfig selects and tunes the price history source
type ProviderConfig struct {
	Kind             string        `yaml:"kind"`              // csv or http
	CSVDir           string        `yaml:"csv_dir"`           // directory of <TICKER>.csv files
	BaseURL          string        `yaml:"base_url"`          // http history endpoint root
	UserAgent        string        `yaml:"user_agent"`        // User agent for all requests
	TimeoutMS        int           `yaml:"timeout_ms"`        // Request timeout in milliseconds
	RPS              float64       `yaml:"rps"`               // Requests per second
	Burst            int           `yaml:"burst"`             // Burst capacity
	VolatilityTicker string        `yaml:"volatility_ticker"` // index used by the adaptive threshold
	Circuit          CircuitConfig `yaml:"circuit"`           // Circuit breaker config
	Cache            CacheConfig   `yaml:"cache"`             // Optional redis cache
}

// CircuitConfig represents circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"` // Consecutive failures to open circuit
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
	OpenTimeoutMS    int    `yaml:"open_timeout_ms"` // time spent open before probing
}

// CacheConfig represents the redis history cache
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSecs  int    `yaml:"ttl_secs"` // Cache TTL in seconds
	Prefix   string `yaml:"prefix"`
}

// DefaultProviderConfig reads CSV files from ./data
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Kind:             ProviderCSV,
		CSVDir:           "data",
		UserAgent:        "hedgehub/1.0",
		TimeoutMS:        10000,
		RPS:              5,
		Burst:            5,
		VolatilityTicker: "VIX",
		Circuit: CircuitConfig{
			FailureThreshold: 5,
			HalfOpenRequests: 1,
			OpenTimeoutMS:    30000,
		},
		Cache: CacheConfig{
			Addr:    "localhost:6379",
			TTLSecs: 3600,
			Prefix:  "hedgehub:history:",
		},
	}
}

// Validate ensures the provider configuration is valid
func (p *ProviderConfig) Validate() error {
	switch p.Kind {
	case ProviderCSV:
		if p.CSVDir == "" {
			return fmt.Errorf("csv_dir cannot be empty")
		}
	case ProviderHTTP:
		if p.BaseURL == "" {
			return fmt.Errorf("base_url cannot be empty")
		}
		if p.RPS <= 0 {
			return fmt.Errorf("rps must be positive, got %v", p.RPS)
		}
		if p.Burst < 1 {
			return fmt.Errorf("burst must be at least 1, got %d", p.Burst)
		}
		if p.TimeoutMS <= 0 {
			return fmt.Errorf("timeout_ms must be positive, got %d", p.TimeoutMS)
		}
		// Validate circuit config
		if err := p.Circuit.Validate(); err != nil {
			return fmt.Errorf("circuit: %w", err)
		}
	default:
		return fmt.Errorf("unknown kind %q (want %s or %s)", p.Kind, ProviderCSV, ProviderHTTP)
	}

	if p.Cache.Enabled {
		if p.Cache.Addr == "" {
			return fmt.Errorf("cache addr cannot be empty")
		}
		if p.Cache.TTLSecs <= 0 {
			return fmt.Errorf("cache ttl_secs must be positive, got %d", p.Cache.TTLSecs)
		}
	}
	return nil
}

// Validate ensures circuit breaker configuration is valid
func (c *CircuitConfig) Validate() error {
	if c.FailureThreshold == 0 {
		return fmt.Errorf("failure_threshold must be positive")
	}
	if c.HalfOpenRequests == 0 {
		return fmt.Errorf("half_open_requests must be positive")
	}
	if c.OpenTimeoutMS <= 0 {
		return fmt.Errorf("open_timeout_ms must be positive, got %d", c.OpenTimeoutMS)
	}
	return nil
}

// RequestTimeout returns the request timeout as a time.Duration
func (p *ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// OpenTimeout returns how long the breaker stays open
func (c *CircuitConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMS) * time.Millisecond
}

// TTL returns the cache TTL as a time.Duration
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

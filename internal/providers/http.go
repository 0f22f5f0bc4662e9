package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/hedgehub/internal/series"
)

// HTTPConfig tunes an HTTPProvider
type HTTPConfig struct {
	BaseURL          string
	UserAgent        string
	Timeout          time.Duration
	RPS              float64
	Burst            int
	FailureThreshold uint32        // consecutive failures that open the breaker
	HalfOpenRequests uint32        // probes allowed while half-open
	OpenTimeout      time.Duration // time spent open before probing
}

// HTTPProvider fetches histories from GET {base}/history/{ticker}?from=&to=,
// which answers with [{"date": "2024-01-02", "close": 101.5}, ...]. Calls
// are rate limited and guarded by a circuit breaker.
type HTTPProvider struct {
	base    *url.URL
	agent   string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// statusError is a non-2xx answer
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// NewHTTPProvider validates the base URL and builds the guarded client
func NewHTTPProvider(cfg HTTPConfig, logger zerolog.Logger) (*HTTPProvider, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	p := &HTTPProvider{
		base:    base,
		agent:   cfg.UserAgent,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logger:  logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "history:" + base.Host,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// a missing ticker is an answer, not an outage
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	return p, nil
}

// State reports the breaker state, for health output
func (p *HTTPProvider) State() string {
	return p.breaker.State().String()
}

// History implements PriceProvider
func (p *HTTPProvider) History(ctx context.Context, ticker string, from, to time.Time) ([]series.Observation, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrProviderUnavailable, err)
	}

	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, t, from, to)
	})
	switch {
	case err == nil:
		return out.([]series.Observation), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, t, err)
	default:
		return nil, err
	}
}

type wireRow struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func (p *HTTPProvider) fetch(ctx context.Context, ticker string, from, to time.Time) ([]series.Observation, error) {
	u := *p.base
	u.Path = u.Path + "/history/" + url.PathEscape(ticker)
	q := u.Query()
	if !from.IsZero() {
		q.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		q.Set("to", to.Format("2006-01-02"))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.agent != "" {
		req.Header.Set("User-Agent", p.agent)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	p.logger.Debug().
		Str("ticker", ticker).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("History request")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, ticker, &statusError{code: resp.StatusCode})
	}

	var rows []wireRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrProviderUnavailable, ticker, err)
	}

	obs := make([]series.Observation, 0, len(rows))
	for _, r := range rows {
		ts, err := parseDate(r.Date)
		if err != nil {
			continue
		}
		obs = append(obs, series.Observation{Time: ts, Price: r.Close})
	}
	obs = clip(obs, from, to)
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	return obs, nil
}

// Package providers loads daily closing-price histories from files, HTTP
// endpoints and a redis cache.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sawpanic/hedgehub/internal/series"
)

var (
	// ErrProviderUnavailable means the source could not be reached or refused the request
	ErrProviderUnavailable = errors.New("price provider unavailable")
	// ErrNoData means the source answered but holds no rows for the ticker and range
	ErrNoData = errors.New("no price data")
)

// PriceProvider returns the closing prices of ticker within [from, to]
// ordered by time. A zero from or to leaves that side unbounded.
type PriceProvider interface {
	History(ctx context.Context, ticker string, from, to time.Time) ([]series.Observation, error)
}

// dateLayouts are tried in order when parsing a date column
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// clip sorts obs and keeps the rows inside [from, to]
func clip(obs []series.Observation, from, to time.Time) []series.Observation {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })
	out := obs[:0]
	for _, o := range obs {
		if !from.IsZero() && o.Time.Before(from) {
			continue
		}
		if !to.IsZero() && o.Time.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func normalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", fmt.Errorf("empty ticker")
	}
	if strings.ContainsAny(t, `/\`) || strings.Contains(t, "..") {
		return "", fmt.Errorf("invalid ticker %q", ticker)
	}
	return t, nil
}

package providers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/hedgehub/internal/series"
)

// CSVProvider reads <TICKER>.csv files with a date and a close column
// from a directory
type CSVProvider struct {
	dir    string
	logger zerolog.Logger
}

// NewCSVProvider creates a provider rooted at dir
func NewCSVProvider(dir string, logger zerolog.Logger) *CSVProvider {
	return &CSVProvider{dir: dir, logger: logger}
}

// History implements PriceProvider
func (p *CSVProvider) History(ctx context.Context, ticker string, from, to time.Time) ([]series.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, t+".csv")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", t, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer f.Close()

	obs, skipped, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if skipped > 0 {
		p.logger.Debug().Str("ticker", t).Int("skipped", skipped).Msg("Skipped unparsable rows")
	}

	obs = clip(obs, from, to)
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: %w", t, ErrNoData)
	}
	return obs, nil
}

// readCSV locates the date and close columns by header name. "adj close"
// is preferred over "close" when both are present.
func readCSV(r io.Reader) ([]series.Observation, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	dateCol, closeCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "time", "timestamp":
			dateCol = i
		case "adj close", "adj_close", "adjclose":
			closeCol = i
		case "close", "price":
			if closeCol < 0 {
				closeCol = i
			}
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, 0, fmt.Errorf("header %v needs a date and a close column", header)
	}

	var (
		out     []series.Observation
		skipped int
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= dateCol || len(rec) <= closeCol {
			skipped++
			continue
		}
		ts, err := parseDate(rec[dateCol])
		if err != nil {
			skipped++
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, series.Observation{Time: ts, Price: price})
	}
	return out, skipped, nil
}

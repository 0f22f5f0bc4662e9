package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/hedgehub/internal/series"
)

// PairHistory holds both legs and the optional volatility index
type PairHistory struct {
	A          []series.Observation
	B          []series.Observation
	Volatility []series.Observation // nil when the index could not be loaded
}

// FetchPair loads both legs and, when volTicker is set, the volatility index
// concurrently. A missing index is logged and tolerated; a missing leg is an
// error.
func FetchPair(ctx context.Context, p PriceProvider, tickerA, tickerB, volTicker string, from, to time.Time, logger zerolog.Logger) (*PairHistory, error) {
	var (
		wg                 sync.WaitGroup
		out                PairHistory
		errA, errB, errVol error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		out.A, errA = p.History(ctx, tickerA, from, to)
	}()
	go func() {
		defer wg.Done()
		out.B, errB = p.History(ctx, tickerB, from, to)
	}()
	if volTicker != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Volatility, errVol = p.History(ctx, volTicker, from, to)
		}()
	}
	wg.Wait()

	if err := errors.Join(legError(tickerA, errA), legError(tickerB, errB)); err != nil {
		return nil, err
	}
	if errVol != nil {
		logger.Info().Err(errVol).Str("ticker", volTicker).Msg("Volatility index unavailable")
		out.Volatility = nil
	}
	return &out, nil
}

func legError(ticker string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", ticker, err)
}

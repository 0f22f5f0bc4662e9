package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/sawpanic/hedgehub/internal/series"
)

// CachedProvider serves histories from redis and falls through to the
// wrapped provider on a miss. Cache failures never fail a request.
type CachedProvider struct {
	next   PriceProvider
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewRedisClient opens the client used by CachedProvider
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewCachedProvider wraps next with a redis read-through cache
func NewCachedProvider(next PriceProvider, client redis.Cmdable, ttl time.Duration, prefix string, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{next: next, client: client, ttl: ttl, prefix: prefix, logger: logger}
}

// History implements PriceProvider
func (c *CachedProvider) History(ctx context.Context, ticker string, from, to time.Time) ([]series.Observation, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	key := c.key(t, from, to)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var obs []series.Observation
		if jerr := json.Unmarshal(raw, &obs); jerr == nil && len(obs) > 0 {
			c.logger.Debug().Str("key", key).Msg("Cache hit")
			return obs, nil
		}
		c.logger.Warn().Str("key", key).Msg("Discarding corrupt cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	obs, err := c.next.History(ctx, t, from, to)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(obs)
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return obs, nil
}

func (c *CachedProvider) key(ticker string, from, to time.Time) string {
	return c.prefix + ticker + ":" + day(from) + ":" + day(to)
}

func day(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format("20060102")
}

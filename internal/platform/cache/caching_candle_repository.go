// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/prices/usecase"
)

// CachingCandleRepository decorates a MarketRepository with a Redis candle cache
// shared between server replicas. Current prices are passed through untouched;
// only candle history is cached.
type CachingCandleRepository struct {
	inner     usecase.MarketRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

var _ usecase.MarketRepository = (*CachingCandleRepository)(nil)

// NewCachingCandleRepository decorates a MarketRepository with Redis caching.
// If ttl is 0, it defaults to 1 minute. If namespace is empty, it uses "candles".
func NewCachingCandleRepository(rdb *redis.Client, ttl time.Duration, inner usecase.MarketRepository, namespace string) *CachingCandleRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CachingCandleRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// GetCurrentPrice delegates to the wrapped repository.
func (c *CachingCandleRepository) GetCurrentPrice(ctx context.Context, symbol string) (*entity.Ticker, error) {
	return c.inner.GetCurrentPrice(ctx, symbol)
}

// GetCandles retrieves candles, checking Redis first then falling back to the wrapped repository.
func (c *CachingCandleRepository) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.GetCandles(ctx, symbol, interval, limit)
	}

	key := c.cacheKey(symbol, interval, limit)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []candleentity.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the exchange
	out, err := c.inner.GetCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.entryTTL(interval)).Err()
	}

	return out, nil
}

// InvalidateSymbol drops every cached candle series of symbol.
func (c *CachingCandleRepository) InvalidateSymbol(ctx context.Context, symbol string) error {
	if c.rdb == nil {
		return nil
	}
	if symbol == "" {
		return c.deleteByPattern(ctx, c.namespace+":*")
	}
	return c.deleteByPattern(ctx, fmt.Sprintf("%s:%s:*", c.namespace, safe(symbol)))
}

// entryTTL caps the configured TTL at the close of the current candle, so a
// cached series never outlives the candle it ends with.
func (c *CachingCandleRepository) entryTTL(interval string) time.Duration {
	ttl := c.ttl
	if until := TimeUntilNextCandle(interval, c.now()); until > 0 && until < ttl {
		ttl = until
	}
	return ttl
}

// cacheKey generates a cache key for a specific query.
func (c *CachingCandleRepository) cacheKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("%s:%s:%s:%d",
		c.namespace,
		safe(symbol),
		safe(interval),
		limit,
	)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingCandleRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

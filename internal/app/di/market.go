// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	pricesusecase "support_tracker/internal/feature/prices/usecase"
	"support_tracker/internal/platform/cache"
	"support_tracker/internal/platform/config"
	"support_tracker/internal/platform/externalapi/binance"
	"support_tracker/internal/platform/externalapi/csvfeed"
	infrahttp "support_tracker/internal/platform/http"
	"support_tracker/internal/shared/ratelimiter"
)

// Market is the market data source used by every feature, plus the Redis
// candle cache in front of it when Redis is enabled.
type Market struct {
	pricesusecase.MarketRepository
	Cache *cache.CachingCandleRepository
}

// NewMarket creates the market data source. A non-empty OfflineCSVDir selects
// the CSV feed; otherwise the Binance REST client is used. rdb may be nil.
func NewMarket(cfg *config.Config, rdb *redis.Client) Market {
	var src pricesusecase.MarketRepository
	if cfg.OfflineCSVDir != "" {
		src = csvfeed.NewFeed(cfg.OfflineCSVDir)
	} else {
		b := cfg.Binance
		httpClient := infrahttp.NewHTTPClient(b.Timeout)
		limiter := ratelimiter.NewRateLimiter("binance", b.RequestsPerMinute, time.Minute)
		src = binance.NewMarket(binance.Config{
			BaseURL:           b.BaseURL,
			APIKey:            b.APIKey,
			SecretKey:         b.SecretKey,
			Timeout:           b.Timeout,
			RequestsPerMinute: b.RequestsPerMinute,
		}, httpClient, limiter)
	}

	if rdb == nil {
		return Market{MarketRepository: src}
	}
	cached := cache.NewCachingCandleRepository(rdb, cfg.Redis.CandleTTL, src, "candles")
	return Market{MarketRepository: cached, Cache: cached}
}

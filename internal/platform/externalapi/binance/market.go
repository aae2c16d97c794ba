package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/prices/usecase"
	"support_tracker/internal/shared/ratelimiter"
)

// Market はBinanceのREST APIからローソク足と24時間ティッカーを取得するMarketRepository実装です。
type Market struct {
	client  *gobinance.Client
	limiter ratelimiter.RateLimiterInterface
}

// MarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*Market)(nil)

// NewMarket は指定された設定とHTTPクライアントでMarketの新しいインスタンスを生成します。
// limiter が nil の場合は cfg.RequestsPerMinute からリミッターを作成します。
func NewMarket(cfg Config, httpClient *http.Client, limiter ratelimiter.RateLimiterInterface) *Market {
	client := gobinance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	if limiter == nil {
		limiter = ratelimiter.NewRateLimiter("binance", cfg.RequestsPerMinute, time.Minute)
	}
	return &Market{client: client, limiter: limiter}
}

// GetCurrentPrice は24時間ティッカーから現在価格と統計値を取得します。
func (m *Market) GetCurrentPrice(ctx context.Context, symbol string) (*priceentity.Ticker, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	stats, err := m.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return nil, fmt.Errorf("binance ticker %s: empty response", symbol)
	}
	s := stats[0]

	t := &priceentity.Ticker{Symbol: s.Symbol, Timestamp: s.CloseTime}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"lastPrice", s.LastPrice, &t.Price},
		{"priceChangePercent", s.PriceChangePercent, &t.Change24h},
		{"volume", s.Volume, &t.Volume24h},
		{"highPrice", s.HighPrice, &t.High24h},
		{"lowPrice", s.LowPrice, &t.Low24h},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	return t, nil
}

// GetCandles はBinanceのklinesを取得し、時系列昇順のローソク足として返します。
func (m *Market) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	klines, err := m.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]candleentity.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := toCandle(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		if !c.Valid() {
			slog.Warn("skipping inconsistent kline", "symbol", symbol, "interval", interval, "open_time", c.Time)
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func toCandle(symbol, interval string, k *gobinance.Kline) (candleentity.Candle, error) {
	c := candleentity.Candle{
		Symbol:   symbol,
		Interval: interval,
		Time:     time.UnixMilli(k.OpenTime).UTC(),
	}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", k.Open, &c.Open},
		{"high", k.High, &c.High},
		{"low", k.Low, &c.Low},
		{"close", k.Close, &c.Close},
		{"volume", k.Volume, &c.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return candleentity.Candle{}, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	return c, nil
}

// Package usecase は価格データとチャート用派生データのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/shared/ttlcache"
)

const (
	// DefaultInterval はチャート取得のデフォルト時間足です。
	DefaultInterval = "1h"
	// DefaultLimit はチャート取得のデフォルト本数です。
	DefaultLimit = 500
	// DefaultCacheTTL はチャートキャッシュの有効期間です。
	DefaultCacheTTL = 5 * time.Minute
	// DefaultVolumeProfileBins は出来高プロファイルのビン数です。
	DefaultVolumeProfileBins = 50
)

// MarketRepository は取引所から価格データを取得するリポジトリのインターフェイスです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type MarketRepository interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*entity.Ticker, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error)
}

// Config はPriceServiceの設定です。ゼロ値の項目はデフォルト値で補われます。
type Config struct {
	CacheTTL          time.Duration
	VolumeProfileBins int
	DefaultLimit      int
}

// PriceService は現在価格の取得と、(symbol, interval) 単位でキャッシュされる
// チャートデータ（価格系列と出来高プロファイル）を提供します。
type PriceService struct {
	market  MarketRepository
	history *ttlcache.TTLCache[*entity.HistoricalData]
	bins    int
	limit   int
}

// NewPriceService はPriceServiceの新しいインスタンスを生成します。
// now が nil の場合は time.Now を使用します。
func NewPriceService(market MarketRepository, cfg Config, now func() time.Time) *PriceService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.VolumeProfileBins <= 0 {
		cfg.VolumeProfileBins = DefaultVolumeProfileBins
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &PriceService{
		market:  market,
		history: ttlcache.NewTTLCache[*entity.HistoricalData](cfg.CacheTTL, now),
		bins:    cfg.VolumeProfileBins,
		limit:   cfg.DefaultLimit,
	}
}

// CurrentPrice は現在価格を取引所から直接取得します。
// 秒未満の鮮度のキャッシュは取引所クライアント側の責務です。
func (s *PriceService) CurrentPrice(ctx context.Context, symbol string) (*entity.Ticker, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	t, err := s.market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: current price %s: %w", ErrFetchFailed, symbol, err)
	}
	return t, nil
}

// Historical はチャート用の価格系列と出来高プロファイルを返します。
// キャッシュキーは (symbol, interval) で、limit はキーに含まれません。
// 取得に失敗した場合は ErrFetchFailed を返し、既存のキャッシュはそのまま残ります。
func (s *PriceService) Historical(ctx context.Context, symbol, interval string, limit int) (*entity.HistoricalData, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if interval == "" {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = s.limit
	}

	return s.history.GetOrLoad(ctx, historyKey(symbol, interval), func(ctx context.Context) (*entity.HistoricalData, error) {
		candles, err := s.market.GetCandles(ctx, symbol, interval, limit)
		if err != nil {
			slog.Warn("failed to fetch candles", "symbol", symbol, "interval", interval, "error", err)
			return nil, fmt.Errorf("%w: candles %s %s: %w", ErrFetchFailed, symbol, interval, err)
		}
		return s.process(candles), nil
	})
}

// Invalidate は指定銘柄のすべての時間足のキャッシュを削除します。
// symbol が空の場合はキャッシュ全体を削除します。
func (s *PriceService) Invalidate(symbol string) {
	if symbol == "" {
		s.history.Clear()
		return
	}
	n := s.history.DeleteFunc(func(key string) bool {
		sym, _, _ := strings.Cut(key, keySep)
		return sym == symbol
	})
	slog.Debug("price cache invalidated", "symbol", symbol, "entries", n)
}

// process はローソク足をチャート表示用の構造に変換します。
func (s *PriceService) process(candles []candleentity.Candle) *entity.HistoricalData {
	points := make([]entity.PricePoint, 0, len(candles))
	for _, c := range candles {
		points = append(points, entity.PricePoint{
			Timestamp: c.Time,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return &entity.HistoricalData{
		Price:         points,
		VolumeProfile: BuildVolumeProfile(candles, s.bins),
	}
}

// keySep は銘柄と時間足の区切りです。どちらにも現れない文字を使います。
const keySep = "|"

func historyKey(symbol, interval string) string {
	return symbol + keySep + interval
}

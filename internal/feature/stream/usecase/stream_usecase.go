// Package usecase はライブ更新ストリームで配信するイベントの生成と定期配信を実装します。
package usecase

import (
	"context"
	"errors"
	"log/slog"

	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/stream/domain/entity"
	supportentity "support_tracker/internal/feature/supports/domain/entity"
	supportusecase "support_tracker/internal/feature/supports/usecase"
)

// PriceUsecase は現在価格とチャートデータを提供するインターフェイスです。
type PriceUsecase interface {
	CurrentPrice(ctx context.Context, symbol string) (*priceentity.Ticker, error)
	Historical(ctx context.Context, symbol, interval string, limit int) (*priceentity.HistoricalData, error)
}

// SupportUsecase はサポートラインと鮮度判定を提供するインターフェイスです。
type SupportUsecase interface {
	Levels(ctx context.Context, symbol string, force bool) ([]supportentity.SupportLevel, error)
	ShouldUpdate(symbol string) bool
	WithDistance(price float64, levels []supportentity.SupportLevel) []supportentity.SupportLevel
}

// StreamService は接続・ペア変更・時間足変更に応じて送るイベントを組み立てます。
// 取得に失敗したデータのイベントは省略されます。
type StreamService struct {
	prices   PriceUsecase
	supports SupportUsecase
}

// NewStreamService はStreamServiceの新しいインスタンスを生成します。
func NewStreamService(prices PriceUsecase, supports SupportUsecase) *StreamService {
	return &StreamService{prices: prices, supports: supports}
}

// Initial は接続直後に送る initial_data イベントを返します。
func (s *StreamService) Initial(ctx context.Context, pair, timeframe string) []entity.Event {
	t := s.price(ctx, pair)
	levels, _ := s.levels(ctx, pair, t)
	if levels == nil {
		levels = []supportentity.SupportLevel{}
	}
	return []entity.Event{{
		Type: entity.TypeInitialData,
		Data: entity.InitialData{Pair: pair, Timeframe: timeframe, PriceData: t, SupportLevels: levels},
	}}
}

// PairChanged はペア変更時に送る price_update と support_update を返します。
func (s *StreamService) PairChanged(ctx context.Context, pair string) []entity.Event {
	var events []entity.Event
	t := s.price(ctx, pair)
	if t != nil {
		events = append(events, entity.Event{Type: entity.TypePriceUpdate, Data: t})
	}
	if levels, stale := s.levels(ctx, pair, t); levels != nil {
		events = append(events, SupportEvent(pair, levels, stale))
	}
	return events
}

// TimeframeChanged は時間足変更時に送る chart_update を返します。
func (s *StreamService) TimeframeChanged(ctx context.Context, pair, timeframe string) []entity.Event {
	data, err := s.prices.Historical(ctx, pair, timeframe, 0)
	if err != nil {
		slog.Warn("stream: chart data unavailable", "pair", pair, "timeframe", timeframe, "error", err)
		return nil
	}
	return []entity.Event{{
		Type: entity.TypeChartUpdate,
		Data: entity.ChartUpdate{Pair: pair, Timeframe: timeframe, HistoricalData: data},
	}}
}

func (s *StreamService) price(ctx context.Context, pair string) *priceentity.Ticker {
	t, err := s.prices.CurrentPrice(ctx, pair)
	if err != nil {
		slog.Warn("stream: price unavailable", "pair", pair, "error", err)
		return nil
	}
	return t
}

// levels returns the pair's levels annotated against t, or nil when none are
// available. Stale levels are still returned.
func (s *StreamService) levels(ctx context.Context, pair string, t *priceentity.Ticker) ([]supportentity.SupportLevel, bool) {
	levels, err := s.supports.Levels(ctx, pair, false)
	stale := errors.Is(err, supportusecase.ErrStale)
	if err != nil && !stale {
		slog.Warn("stream: support levels unavailable", "pair", pair, "error", err)
		return nil, false
	}
	if t != nil {
		levels = s.supports.WithDistance(t.Price, levels)
	}
	return levels, stale
}

// SupportEvent wraps levels of pair into a support_update event.
func SupportEvent(pair string, levels []supportentity.SupportLevel, stale bool) entity.Event {
	return entity.Event{
		Type: entity.TypeSupportUpdate,
		Data: entity.SupportUpdate{Pair: pair, Levels: levels, Stale: stale},
	}
}

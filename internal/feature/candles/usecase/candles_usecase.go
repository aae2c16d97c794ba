// Package usecase はローソク足データ操作のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"strings"

	"support_tracker/internal/feature/candles/domain/entity"
)

const (
	// DefaultInterval はローソク足クエリのデフォルト時間間隔です。
	DefaultInterval = "1h"
	// DefaultOutputSize はデフォルトのローソク足返却件数です。
	DefaultOutputSize = 500
	// MaxOutputSize はローソク足の最大返却件数です（Binance klines の上限）。
	MaxOutputSize = 1000
)

// CandleRepository はローソク足データの読み取りレイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CandleRepository interface {
	// GetCandles は取引所からローソク足データを時系列昇順で取得します。
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]entity.Candle, error)
}

// PairChecker は取引ペアが配信対象かどうかを判定します。
type PairChecker interface {
	IsActive(ctx context.Context, code string) (bool, error)
}

// candlesUsecase はローソク足データ操作のユースケースを定義します。
type candlesUsecase struct {
	candle CandleRepository
	pairs  PairChecker
}

// NewCandlesUsecase はcandlesUsecaseの新しいインスタンスを生成します。
// pairs が nil の場合は取引ペアを制限しません。
func NewCandlesUsecase(candle CandleRepository, pairs PairChecker) *candlesUsecase {
	return &candlesUsecase{candle: candle, pairs: pairs}
}

// GetCandles は指定された取引ペアと時間足のローソク足データを取得します。
//
// interval が空の場合は DefaultInterval、outputsize が0以下の場合は DefaultOutputSize を使い、
// MaxOutputSize を超える件数は MaxOutputSize に切り詰めます。
// 未対応の時間足は ErrInvalidInterval、配信対象外のペアは ErrUnknownSymbol を返し、取引所には問い合わせません。
func (cu *candlesUsecase) GetCandles(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if interval == "" {
		interval = DefaultInterval
	}
	if !entity.ValidInterval(interval) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	switch {
	case outputsize <= 0:
		outputsize = DefaultOutputSize
	case outputsize > MaxOutputSize:
		outputsize = MaxOutputSize
	}

	if cu.pairs != nil {
		ok, err := cu.pairs.IsActive(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
	}

	cs, err := cu.candle.GetCandles(ctx, symbol, interval, outputsize)
	if err != nil {
		return nil, err
	}

	return cs, nil
}

// Package usecase はサポートラインの鮮度管理と現在価格に対する距離計算を実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/supports/detector"
	"support_tracker/internal/feature/supports/domain/entity"
	"support_tracker/internal/shared/ttlcache"
)

const (
	// DefaultUpdateInterval はサポートラインを再計算するまでの有効期間です。
	DefaultUpdateInterval = 15 * time.Minute
	// DefaultCandleInterval は検出に使うローソク足の時間足です。
	DefaultCandleInterval = "1h"
	// DefaultCandleLimit は検出に使うローソク足の本数です。
	DefaultCandleLimit = 500
	// DefaultRetryBackoff は再計算に失敗した銘柄を再試行するまでの待機時間です。
	DefaultRetryBackoff = 30 * time.Second
	// DefaultMaxDistancePercent はアクティブなサポートとみなす現在価格からの最大距離(%)です。
	DefaultMaxDistancePercent = 5.0
)

// CandleSource はローソク足を取得する市場データのインターフェイスです。
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error)
}

// PriceSource は現在価格を取得するインターフェイスです。
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (*priceentity.Ticker, error)
}

// SupportDetector はサポートライン検出器のインターフェイスです。
type SupportDetector interface {
	Detect(symbol string, candles []candleentity.Candle) ([]entity.SupportLevel, error)
	Cached(symbol string) ([]entity.SupportLevel, bool)
}

var _ SupportDetector = (*detector.Detector)(nil)

// Config はSupportServiceの設定です。ゼロ値の項目はデフォルト値で補われます。
type Config struct {
	UpdateInterval     time.Duration
	RetryBackoff       time.Duration
	CandleInterval     string
	CandleLimit        int
	MaxDistancePercent float64
	// PlaceholderFallback が true の場合、検出結果が一度も得られていない銘柄には
	// デモ用の固定サポートラインを返します。
	PlaceholderFallback bool
}

func (c Config) withDefaults() Config {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.CandleInterval == "" {
		c.CandleInterval = DefaultCandleInterval
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = DefaultCandleLimit
	}
	if c.MaxDistancePercent <= 0 {
		c.MaxDistancePercent = DefaultMaxDistancePercent
	}
	return c
}

// SupportService は検出器を鮮度ポリシーで包み、銘柄ごとの再計算を制御します。
//
// 銘柄ごとの状態は EMPTY → FRESH → STALE → FRESH と遷移します。
// 再計算に失敗してもタイムスタンプは進まず、前回の検出結果が保持されます。
// 失敗した銘柄は RetryBackoff の間、強制更新以外では再計算されません。
type SupportService struct {
	candles  CandleSource
	prices   PriceSource
	detector SupportDetector
	cfg      Config
	now      func() time.Time

	// stamps は銘柄ごとの最終更新時刻のみを保持します。検出結果は detector が保持します。
	stamps *ttlcache.TTLCache[struct{}]

	mu       sync.Mutex
	failures map[string]failure
}

// failure は直近の再計算失敗と、次に再試行できる時刻です。
type failure struct {
	err   error
	until time.Time
}

// NewSupportService はSupportServiceの新しいインスタンスを生成します。
// now が nil の場合は time.Now を使用します。
func NewSupportService(candles CandleSource, prices PriceSource, det SupportDetector, cfg Config, now func() time.Time) *SupportService {
	if now == nil {
		now = time.Now
	}
	cfg = cfg.withDefaults()
	return &SupportService{
		candles:  candles,
		prices:   prices,
		detector: det,
		cfg:      cfg,
		now:      now,
		stamps:   ttlcache.NewTTLCache[struct{}](cfg.UpdateInterval, now),
		failures: make(map[string]failure),
	}
}

// Levels はサポートラインを強度の降順で返します。
//
// force が false で前回更新から UpdateInterval 以内なら、検出器のキャッシュを再計算せずに返します。
// それ以外はローソク足を取得して再検出します。同じ銘柄の同時再計算は1回にまとめられます。
//
// 再計算に失敗した場合は前回の結果（なければ空）と、原因（ErrFetchFailed / ErrNoData /
// ErrInsufficientData）をラップしたエラーを返します。前回の結果がある場合は ErrStale もラップされます。
// 再試行の待機中は取得を行わず、直近の失敗原因で同じ結果を返します。
func (s *SupportService) Levels(ctx context.Context, symbol string, force bool) ([]entity.SupportLevel, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if !force && !s.stamps.Fresh(symbol) {
		if f, ok := s.backingOff(symbol); ok {
			return s.fallback(symbol, f.err)
		}
	}

	load := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.recompute(ctx, symbol)
	}
	var err error
	if force {
		_, err = s.stamps.Refresh(ctx, symbol, load)
	} else {
		_, err = s.stamps.GetOrLoad(ctx, symbol, load)
	}
	if err != nil {
		if ctx.Err() == nil {
			s.recordFailure(symbol, err)
		}
		return s.fallback(symbol, err)
	}
	s.clearFailure(symbol)

	levels, ok := s.detector.Cached(symbol)
	if !ok {
		return []entity.SupportLevel{}, nil
	}
	return levels, nil
}

// ShouldUpdate は銘柄が一度も更新されていないか、有効期間が過ぎている場合に true を返します。
// 再計算に失敗した直後の RetryBackoff の間は false です。
func (s *SupportService) ShouldUpdate(symbol string) bool {
	if s.stamps.Fresh(symbol) {
		return false
	}
	_, waiting := s.backingOff(symbol)
	return !waiting
}

// WithDistance は各サポートラインに現在価格からの距離(%)を付与したコピーを返します。
// distance = (price - level) / price * 100 を小数第2位で丸めた値で、価格がラインより上なら正になります。
// price が 0 以下の場合は距離を付与せずにコピーのみを返します。
func (s *SupportService) WithDistance(price float64, levels []entity.SupportLevel) []entity.SupportLevel {
	out := entity.CloneLevels(levels)
	if out == nil {
		out = []entity.SupportLevel{}
	}
	if price <= 0 {
		return out
	}
	for i := range out {
		d := math.Round((price-out[i].Price)/price*100*100) / 100
		out[i].Distance = &d
	}
	return out
}

// Active は現在価格から maxDistance(%) 以内にあるサポートラインを距離付きで返します。
// maxDistance が 0 以下の場合は設定値を使います。
// サポートラインまたは現在価格が得られない場合は空のスライスを返します。
func (s *SupportService) Active(ctx context.Context, symbol string, maxDistance float64) ([]entity.SupportLevel, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if maxDistance <= 0 {
		maxDistance = s.cfg.MaxDistancePercent
	}

	levels, err := s.Levels(ctx, symbol, false)
	if err != nil {
		slog.Warn("active supports: using last known levels", "symbol", symbol, "error", err)
	}
	if len(levels) == 0 {
		return []entity.SupportLevel{}, nil
	}

	t, err := s.prices.CurrentPrice(ctx, symbol)
	if err != nil || t == nil || t.Price <= 0 {
		slog.Warn("active supports: current price unavailable", "symbol", symbol, "error", err)
		return []entity.SupportLevel{}, nil
	}

	active := make([]entity.SupportLevel, 0, len(levels))
	for _, l := range s.WithDistance(t.Price, levels) {
		if math.Abs(*l.Distance) <= maxDistance {
			active = append(active, l)
		}
	}
	return active, nil
}

// Invalidate は銘柄の最終更新時刻を削除し、次回の Levels で再計算させます。
// symbol が空の場合はすべての銘柄が対象です。検出器のキャッシュは保持されます。
func (s *SupportService) Invalidate(symbol string) {
	if symbol == "" {
		s.stamps.Clear()
		s.mu.Lock()
		clear(s.failures)
		s.mu.Unlock()
		return
	}
	s.stamps.Delete(symbol)
	s.clearFailure(symbol)
}

// MaxDistancePercent はアクティブなサポートの既定の最大距離を返します。
func (s *SupportService) MaxDistancePercent() float64 {
	return s.cfg.MaxDistancePercent
}

// recompute はローソク足を取得して再検出します。成功時のみ検出器のキャッシュが更新されます。
func (s *SupportService) recompute(ctx context.Context, symbol string) error {
	candles, err := s.candles.GetCandles(ctx, symbol, s.cfg.CandleInterval, s.cfg.CandleLimit)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrFetchFailed, symbol, s.cfg.CandleInterval, err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("%w: %s %s", ErrNoData, symbol, s.cfg.CandleInterval)
	}
	levels, err := s.detector.Detect(symbol, candles)
	if err != nil {
		return fmt.Errorf("detect %s: %w", symbol, err)
	}
	slog.Info("support levels updated", "symbol", symbol, "levels", len(levels))
	return nil
}

func (s *SupportService) fallback(symbol string, cause error) ([]entity.SupportLevel, error) {
	if levels, ok := s.detector.Cached(symbol); ok {
		slog.Warn("support recompute failed, serving last levels", "symbol", symbol, "error", cause)
		return levels, fmt.Errorf("%w: %w", ErrStale, cause)
	}
	if s.cfg.PlaceholderFallback && !errors.Is(cause, context.Canceled) {
		slog.Warn("support recompute failed, serving placeholder levels", "symbol", symbol, "error", cause)
		return detector.PlaceholderLevels(s.now()), nil
	}
	slog.Warn("support recompute failed", "symbol", symbol, "error", cause)
	return []entity.SupportLevel{}, cause
}

func (s *SupportService) backingOff(symbol string) (failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failures[symbol]
	if !ok || !s.now().Before(f.until) {
		return failure{}, false
	}
	return f, true
}

func (s *SupportService) recordFailure(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[symbol] = failure{err: err, until: s.now().Add(s.cfg.RetryBackoff)}
}

func (s *SupportService) clearFailure(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, symbol)
}

// Package csvfeed serves candles and prices from CSV files for offline use.
//
// Files live in one directory and are named SYMBOL_INTERVAL.csv, for example
// BTCUSDT_1h.csv. SYMBOL.csv is used for any interval without its own file.
package csvfeed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/prices/usecase"
)

// ErrNotFound is returned when no file exists for a symbol.
var ErrNotFound = errors.New("no candle file for symbol")

// priceInterval is the file consulted first for the current price.
const priceInterval = "1h"

// Feed is a MarketRepository backed by CSV files. Files are read once and kept in memory.
type Feed struct {
	dir string

	mu    sync.RWMutex
	files map[string][]candleentity.Candle
}

var _ usecase.MarketRepository = (*Feed)(nil)

// NewFeed returns a Feed reading from dir.
func NewFeed(dir string) *Feed {
	return &Feed{dir: dir, files: make(map[string][]candleentity.Candle)}
}

// GetCandles returns the last limit candles of symbol and interval, time-ascending.
func (f *Feed) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := f.load(symbol, interval)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]candleentity.Candle, len(all))
	copy(out, all)
	return out, nil
}

// GetCurrentPrice reports the close of the latest candle as the price, with
// 24h statistics taken from the candles of the last 24 hours of the file.
func (f *Feed) GetCurrentPrice(ctx context.Context, symbol string) (*priceentity.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := f.load(symbol, priceInterval)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotFound, symbol)
	}
	return tickerOf(symbol, all), nil
}

func tickerOf(symbol string, candles []candleentity.Candle) *priceentity.Ticker {
	last := candles[len(candles)-1]
	from := last.Time.Add(-24 * time.Hour)

	t := &priceentity.Ticker{
		Symbol:    symbol,
		Price:     last.Close,
		High24h:   last.High,
		Low24h:    last.Low,
		Timestamp: last.Time.UnixMilli(),
	}
	open := last.Open
	for i := len(candles) - 1; i >= 0 && candles[i].Time.After(from); i-- {
		c := candles[i]
		t.Volume24h += c.Volume
		t.High24h = max(t.High24h, c.High)
		t.Low24h = min(t.Low24h, c.Low)
		open = c.Open
	}
	if open > 0 {
		t.Change24h = (last.Close - open) / open * 100
	}
	return t
}

func (f *Feed) load(symbol, interval string) ([]candleentity.Candle, error) {
	symbol = strings.ToUpper(symbol)
	key := symbol + "_" + interval

	f.mu.RLock()
	cached, ok := f.files[key]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	candles, err := f.read(symbol, interval)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.files[key] = candles
	f.mu.Unlock()
	return candles, nil
}

func (f *Feed) read(symbol, interval string) ([]candleentity.Candle, error) {
	for _, name := range []string{symbol + "_" + interval + ".csv", symbol + ".csv"} {
		file, err := os.Open(filepath.Join(f.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		candles, err := ReadCandles(file, symbol, interval)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return candles, nil
	}
	return nil, fmt.Errorf("%w: %s %s in %s", ErrNotFound, symbol, interval, f.dir)
}

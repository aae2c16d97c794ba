// Package detector finds support levels in a candle series.
//
// A support level is a local minimum of the lows that the price has returned
// to at least MinTouches times. Levels are scored from touch count, volume at
// the pivot and recency, thinned so that no two sit closer than a fraction of
// the candidate spread, and returned strongest first.
package detector

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/supports/domain/entity"
)

// Detector runs the support detection and remembers the last good result per symbol.
// It is safe for concurrent use.
type Detector struct {
	cfg Config

	mu    sync.RWMutex
	cache map[string][]entity.SupportLevel
}

// New returns a Detector. Zero fields of cfg take the package defaults.
func New(cfg Config) *Detector {
	return &Detector{
		cfg:   cfg.withDefaults(),
		cache: make(map[string][]entity.SupportLevel),
	}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// MinCandles is the shortest series Detect accepts.
func (d *Detector) MinCandles() int {
	return 2*d.cfg.Window + 1
}

// Detect returns the support levels of candles, strongest first, and caches
// them for symbol. candles must be time-ascending.
//
// With no candles it returns the cached levels for symbol, or ErrNoData.
// A series shorter than MinCandles yields ErrInsufficientData and leaves the
// cache untouched.
func (d *Detector) Detect(symbol string, candles []candleentity.Candle) ([]entity.SupportLevel, error) {
	if len(candles) == 0 {
		if levels, ok := d.Cached(symbol); ok {
			return levels, nil
		}
		return nil, ErrNoData
	}
	if len(candles) < d.MinCandles() {
		return nil, fmt.Errorf("%w: got %d candles, need %d", ErrInsufficientData, len(candles), d.MinCandles())
	}

	levels := d.detect(candles)

	d.mu.Lock()
	d.cache[symbol] = entity.CloneLevels(levels)
	d.mu.Unlock()

	slog.Debug("support levels detected", "symbol", symbol, "candles", len(candles), "levels", len(levels))
	return levels, nil
}

// Cached returns a copy of the last levels detected for symbol.
func (d *Detector) Cached(symbol string) ([]entity.SupportLevel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	levels, ok := d.cache[symbol]
	if !ok {
		return nil, false
	}
	return entity.CloneLevels(levels), true
}

// Forget drops the cached levels of symbol, or of every symbol when symbol is empty.
func (d *Detector) Forget(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if symbol == "" {
		clear(d.cache)
		return
	}
	delete(d.cache, symbol)
}

func (d *Detector) detect(candles []candleentity.Candle) []entity.SupportLevel {
	levels := filterClose(d.scan(candles), d.cfg.MinDistancePercent)
	sort.SliceStable(levels, func(a, b int) bool {
		return levels[a].Strength > levels[b].Strength
	})
	return levels
}

// scan returns every scored local minimum with enough touches, in index order.
func (d *Detector) scan(candles []candleentity.Candle) []entity.SupportLevel {
	w := d.cfg.Window
	lows := make([]float64, len(candles))
	vols := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
		vols[i] = c.Volume
	}
	meanVol, err := stats.Mean(vols)
	if err != nil {
		meanVol = 0
	}

	candidates := make([]entity.SupportLevel, 0)
	for i := w; i < len(lows)-w; i++ {
		p := lows[i]
		// a zero low has no relative band
		if p <= 0 {
			continue
		}
		if !isLocalMinimum(lows, i, w) {
			continue
		}
		touches, last := countTouches(lows, p, d.cfg.TouchTolerance)
		if touches < d.cfg.MinTouches {
			continue
		}
		lvl := entity.SupportLevel{
			Price:    p,
			Touches:  touches,
			Strength: strength(touches, d.cfg.MinTouches, volumeScore(vols[i], meanVol), recency(lows, i, p)),
		}
		if last >= 0 {
			t := candles[last].Time
			lvl.LastTest = &t
		}
		candidates = append(candidates, lvl)
	}
	return candidates
}

// Package entity defines the domain models for the candles feature.
package entity

import "time"

// Candle represents OHLCV (Open, High, Low, Close, Volume) candlestick data
// for a trading pair at a specific time interval.
type Candle struct {
	Symbol   string    // Trading pair (e.g., "BTCUSDT")
	Interval string    // Time interval (e.g., "1m", "1h", "1d")
	Time     time.Time // Timestamp for the start of this candle period
	Open     float64   // Opening price
	High     float64   // Highest price during this period
	Low      float64   // Lowest price during this period
	Close    float64   // Closing price
	Volume   float64   // Traded base-asset volume
}

// Valid reports whether the candle's prices are internally consistent:
// all values non-negative, High is the maximum and Low the minimum of the period.
func (c Candle) Valid() bool {
	if c.Open < 0 || c.High < 0 || c.Low < 0 || c.Close < 0 || c.Volume < 0 {
		return false
	}
	if c.High < c.Open || c.High < c.Close || c.High < c.Low {
		return false
	}
	if c.Low > c.Open || c.Low > c.Close {
		return false
	}
	return true
}

// intervals は取引所が受け付けるローソク足の時間足です。
var intervals = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "8h": {}, "12h": {},
	"1d": {}, "3d": {}, "1w": {}, "1M": {},
}

// ValidInterval reports whether interval is a supported kline interval.
// Intervals are case-sensitive: "1m" is one minute, "1M" one month.
func ValidInterval(interval string) bool {
	_, ok := intervals[interval]
	return ok
}

// Package entity defines the domain models for the prices feature.
package entity

import "time"

// Ticker is the latest price of a trading pair together with its 24h statistics.
type Ticker struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"` // percent
	Volume24h float64 `json:"volume_24h"`
	High24h   float64 `json:"high_24h"`
	Low24h    float64 `json:"low_24h"`
	Timestamp int64   `json:"timestamp"` // close time of the 24h window, unix ms
}

// PricePoint is one candle prepared for chart display.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// VolumeProfileBin is the traded volume aggregated over one price bin.
// Only bins with strictly positive volume are ever produced.
type VolumeProfileBin struct {
	PriceLevel float64 `json:"price_level"` // lower edge of the bin
	Volume     float64 `json:"volume"`
}

// HistoricalData is the processed chart payload for one (symbol, interval).
type HistoricalData struct {
	Price         []PricePoint       `json:"price"`
	VolumeProfile []VolumeProfileBin `json:"volume_profile"`
}

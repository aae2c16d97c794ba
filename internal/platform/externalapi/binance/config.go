// Package binance provides market data from the Binance spot REST API.
package binance

import "time"

// Config holds configuration for the Binance API client.
type Config struct {
	BaseURL           string        // e.g. "https://api.binance.com"
	APIKey            string        // optional, public market data needs none
	SecretKey         string        // optional
	Timeout           time.Duration // HTTP request timeout
	RequestsPerMinute int           // client side pacing, 0 disables it
}

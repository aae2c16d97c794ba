package usecase

import "errors"

var (
	// ErrFetchFailed is returned when the market data source could not deliver data.
	// The underlying cause is wrapped.
	ErrFetchFailed = errors.New("market data fetch failed")

	// ErrEmptySymbol is returned when a request names no trading pair.
	ErrEmptySymbol = errors.New("symbol is required")
)

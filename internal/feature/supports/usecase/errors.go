package usecase

import (
	"errors"

	"support_tracker/internal/feature/supports/detector"
)

var (
	// ErrNoData means the market source returned no candles and nothing was detected before.
	ErrNoData = detector.ErrNoData

	// ErrInsufficientData means the candle series is too short for the detection window.
	ErrInsufficientData = detector.ErrInsufficientData

	// ErrFetchFailed means the candle source could not deliver data. The cause is wrapped.
	ErrFetchFailed = errors.New("candle fetch failed")

	// ErrStale accompanies the last good levels when a recompute failed.
	ErrStale = errors.New("support levels are stale")

	// ErrEmptySymbol is returned when a request names no trading pair.
	ErrEmptySymbol = errors.New("symbol is required")
)

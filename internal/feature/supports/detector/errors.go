package detector

import "errors"

var (
	// ErrNoData is returned when Detect gets no candles and holds no cached result for the symbol.
	ErrNoData = errors.New("no candle data")

	// ErrInsufficientData is returned when the series is shorter than two windows plus one candle.
	ErrInsufficientData = errors.New("insufficient candle data for detection window")
)

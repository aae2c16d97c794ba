// Package entity defines the domain models for the symbollist feature.
package entity

// Symbol is a tradable pair offered in the UI pair selector.
type Symbol struct {
	Code    string // exchange symbol, e.g. BTCUSDT
	Base    string // BTC
	Quote   string // USDT
	SortKey int
}

// DisplayName returns "BASE/QUOTE", or the code when the pair could not be split.
func (s Symbol) DisplayName() string {
	if s.Base == "" || s.Quote == "" {
		return s.Code
	}
	return s.Base + "/" + s.Quote
}

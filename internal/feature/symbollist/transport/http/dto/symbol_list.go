// Package dto defines data transfer objects for the symbollist HTTP API.
package dto

// SymbolItem represents a trading pair in the API response.
type SymbolItem struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Base  string `json:"base,omitempty"`
	Quote string `json:"quote,omitempty"`
}

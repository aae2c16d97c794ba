// Package entity defines the messages exchanged over the live update stream.
package entity

import (
	"encoding/json"

	priceentity "support_tracker/internal/feature/prices/domain/entity"
	supportentity "support_tracker/internal/feature/supports/domain/entity"
)

// Server to client event types.
const (
	TypeInitialData   = "initial_data"
	TypePriceUpdate   = "price_update"
	TypeSupportUpdate = "support_update"
	TypeChartUpdate   = "chart_update"
	TypeError         = "error"
)

// Client to server message types.
const (
	TypeChangePair      = "change_pair"
	TypeChangeTimeframe = "change_timeframe"
)

// Event is one server to client message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ClientMessage is one client to server message. Data is decoded per Type.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ChangePair selects the trading pair a client follows.
type ChangePair struct {
	Pair string `json:"pair"`
}

// ChangeTimeframe selects the chart interval a client follows.
type ChangeTimeframe struct {
	Timeframe string `json:"timeframe"`
}

// InitialData is sent once right after a client connects.
type InitialData struct {
	Pair          string                       `json:"pair"`
	Timeframe     string                       `json:"timeframe"`
	PriceData     *priceentity.Ticker          `json:"price_data"`
	SupportLevels []supportentity.SupportLevel `json:"support_levels"`
}

// SupportUpdate carries the current support levels of a pair.
type SupportUpdate struct {
	Pair   string                       `json:"pair"`
	Levels []supportentity.SupportLevel `json:"levels"`
	Stale  bool                         `json:"stale"`
}

// ChartUpdate carries chart data of a pair for one timeframe.
type ChartUpdate struct {
	Pair      string `json:"pair"`
	Timeframe string `json:"timeframe"`
	*priceentity.HistoricalData
}

// ErrorMessage reports a rejected client message.
type ErrorMessage struct {
	Message string `json:"message"`
}

// Package dto defines data transfer objects for the supports HTTP API.
package dto

import "support_tracker/internal/feature/supports/domain/entity"

// LevelsQuery は GET /api/supports/:symbol のクエリパラメータです。
type LevelsQuery struct {
	Force bool `form:"force"`
}

// ActiveQuery は GET /api/supports/:symbol/active のクエリパラメータです。
type ActiveQuery struct {
	MaxDistance float64 `form:"max_distance" binding:"omitempty,gte=0,lte=100"`
}

// SupportsResponse はサポートライン一覧のレスポンスDTOです。
// 再計算に失敗した場合も、前回の結果があれば Levels に含め Stale を true にします。
type SupportsResponse struct {
	Symbol string                `json:"symbol"`
	Price  *float64              `json:"price,omitempty"` // 距離計算に使った現在価格
	Levels []entity.SupportLevel `json:"levels"`
	Stale  bool                  `json:"stale"`
	Error  string                `json:"error,omitempty"`
}

// ActiveResponse はアクティブなサポートライン一覧のレスポンスDTOです。
type ActiveResponse struct {
	Symbol      string                `json:"symbol"`
	MaxDistance float64               `json:"max_distance"`
	Levels      []entity.SupportLevel `json:"levels"`
}

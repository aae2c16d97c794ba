// Package dto defines data transfer objects for the prices HTTP API.
package dto

// ChartQuery は GET /api/chart/:symbol のクエリパラメータです。
type ChartQuery struct {
	Interval string `form:"interval"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

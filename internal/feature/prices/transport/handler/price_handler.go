// Package handler はpricesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"support_tracker/internal/api"
	"support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/prices/transport/http/dto"
	"support_tracker/internal/feature/prices/usecase"
)

// PriceUsecase は価格データのユースケースインターフェースです。
type PriceUsecase interface {
	CurrentPrice(ctx context.Context, symbol string) (*entity.Ticker, error)
	Historical(ctx context.Context, symbol, interval string, limit int) (*entity.HistoricalData, error)
}

// PriceHandler は現在価格とチャートデータのHTTPリクエストを処理します。
type PriceHandler struct {
	uc PriceUsecase
}

// NewPriceHandler はPriceHandlerの新しいインスタンスを生成します。
func NewPriceHandler(uc PriceUsecase) *PriceHandler {
	return &PriceHandler{uc: uc}
}

// GetPrice は取引ペアの現在価格と24時間統計を返します。
//
// エンドポイント例:
// GET /api/price/:symbol
func (h *PriceHandler) GetPrice(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	t, err := h.uc.CurrentPrice(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(statusOf(err), api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// GetChart はチャート用の価格系列と出来高プロファイルを返します。
//
// エンドポイント例:
// GET /api/chart/:symbol?interval=4h&limit=200
func (h *PriceHandler) GetChart(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	var q dto.ChartQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	data, err := h.uc.Historical(c.Request.Context(), symbol, q.Interval, q.Limit)
	if err != nil {
		c.JSON(statusOf(err), api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, data)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmptySymbol):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

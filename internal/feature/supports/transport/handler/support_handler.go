// Package handler はsupportsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"support_tracker/internal/api"
	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/supports/domain/entity"
	"support_tracker/internal/feature/supports/transport/http/dto"
	"support_tracker/internal/feature/supports/usecase"
)

// SupportUsecase はサポートラインのユースケースインターフェースです。
type SupportUsecase interface {
	Levels(ctx context.Context, symbol string, force bool) ([]entity.SupportLevel, error)
	Active(ctx context.Context, symbol string, maxDistance float64) ([]entity.SupportLevel, error)
	WithDistance(price float64, levels []entity.SupportLevel) []entity.SupportLevel
	MaxDistancePercent() float64
}

// PriceUsecase は距離計算に使う現在価格を取得するインターフェースです。
type PriceUsecase interface {
	CurrentPrice(ctx context.Context, symbol string) (*priceentity.Ticker, error)
}

// SupportHandler はサポートラインのHTTPリクエストを処理します。
type SupportHandler struct {
	uc     SupportUsecase
	prices PriceUsecase
}

// NewSupportHandler はSupportHandlerの新しいインスタンスを生成します。
func NewSupportHandler(uc SupportUsecase, prices PriceUsecase) *SupportHandler {
	return &SupportHandler{uc: uc, prices: prices}
}

// GetLevels はサポートラインを強度の降順で返します。現在価格が取得できれば距離を付与します。
//
// エンドポイント例:
// GET /api/supports/:symbol?force=true
func (h *SupportHandler) GetLevels(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	var q dto.LevelsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	levels, err := h.uc.Levels(ctx, symbol, q.Force)
	if errors.Is(err, usecase.ErrEmptySymbol) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	res := dto.SupportsResponse{Symbol: symbol, Levels: levels, Stale: errors.Is(err, usecase.ErrStale)}
	if res.Levels == nil {
		res.Levels = []entity.SupportLevel{}
	}
	if t, perr := h.prices.CurrentPrice(ctx, symbol); perr == nil && t != nil && t.Price > 0 {
		p := t.Price
		res.Price = &p
		res.Levels = h.uc.WithDistance(p, res.Levels)
	} else if perr != nil {
		slog.Debug("supports: price unavailable for distance", "symbol", symbol, "error", perr)
	}

	if err != nil {
		res.Error = err.Error()
		c.JSON(statusOf(err), res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetActive は現在価格から max_distance(%) 以内のサポートラインを返します。
//
// エンドポイント例:
// GET /api/supports/:symbol/active?max_distance=3
func (h *SupportHandler) GetActive(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	var q dto.ActiveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	maxDistance := q.MaxDistance
	if maxDistance <= 0 {
		maxDistance = h.uc.MaxDistancePercent()
	}

	levels, err := h.uc.Active(c.Request.Context(), symbol, maxDistance)
	if err != nil {
		c.JSON(statusOf(err), api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ActiveResponse{Symbol: symbol, MaxDistance: maxDistance, Levels: levels})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmptySymbol):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, usecase.ErrInsufficientData), errors.Is(err, usecase.ErrNoData):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

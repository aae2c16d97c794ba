// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"support_tracker/internal/api"
	"support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/candles/transport/http/dto"
	"support_tracker/internal/feature/candles/usecase"
)

// CandlesUsecase はローソク足データ操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetCandles(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
}

// CandlesHandler はローソク足データのHTTPリクエストを処理します。
type CandlesHandler struct {
	uc CandlesUsecase
}

// NewCandlesHandler は指定されたusecaseでCandlesHandlerの新しいインスタンスを生成します。
func NewCandlesHandler(uc CandlesUsecase) *CandlesHandler {
	return &CandlesHandler{uc: uc}
}

// GetCandlesHandler は取引ペアと時間足を受け取り、ローソク足データをJSONで返します。
//
// エンドポイント例:
// GET /api/candles/:code?interval=4h&outputsize=200
func (h *CandlesHandler) GetCandlesHandler(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	// 未指定の場合はデフォルト値を使用
	interval := c.DefaultQuery("interval", "1h")
	outputsizeStr := c.DefaultQuery("outputsize", "500")
	// 文字列を整数に変換（不正値は0となり、usecase側でデフォルトに補正される）
	outputsize, _ := strconv.Atoi(outputsizeStr)

	candles, err := h.uc.GetCandles(c.Request.Context(), code, interval, outputsize)
	if err != nil {
		c.JSON(statusFor(err), api.ErrorResponse{Error: err.Error()})
		return
	}

	// データをフォーマット
	out := make([]dto.CandleResponse, 0, len(candles))
	for _, x := range candles {
		out = append(out, dto.CandleResponse{
			Time:   x.Time.UTC().Format(time.RFC3339),
			Open:   x.Open,
			High:   x.High,
			Low:    x.Low,
			Close:  x.Close,
			Volume: x.Volume,
		})
	}

	c.JSON(http.StatusOK, out)
}

// statusFor はusecaseのエラーをHTTPステータスに変換します。取引所側の失敗は502です。
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmptySymbol), errors.Is(err, usecase.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnknownSymbol):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

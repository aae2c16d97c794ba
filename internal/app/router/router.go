// Package router wires the HTTP routes of every feature into one gin engine.
package router

import (
	"github.com/gin-gonic/gin"

	candleshandler "support_tracker/internal/feature/candles/transport/handler"
	priceshandler "support_tracker/internal/feature/prices/transport/handler"
	streamws "support_tracker/internal/feature/stream/transport/websocket"
	supportshandler "support_tracker/internal/feature/supports/transport/handler"
	symbollisthandler "support_tracker/internal/feature/symbollist/transport/handler"
	platformhandler "support_tracker/internal/platform/http/handler"
	jwtmw "support_tracker/internal/platform/jwt"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Health   *platformhandler.HealthHandler
	Cache    *platformhandler.CacheHandler
	Symbols  *symbollisthandler.SymbolHandler
	Candles  *candleshandler.CandlesHandler
	Prices   *priceshandler.PriceHandler
	Supports *supportshandler.SupportHandler
	Stream   *streamws.Hub
}

// NewRouter builds the gin engine. Admin routes require a bearer token signed with jwtSecret.
func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	r.GET("/healthz", h.Health.Health)
	r.HEAD("/healthz", h.Health.Health)
	r.OPTIONS("/healthz", h.Health.Health)

	// 認証不要
	api := r.Group("/api")
	{
		api.GET("/symbols", h.Symbols.List)
		api.GET("/candles/:code", h.Candles.GetCandlesHandler)
		api.GET("/price/:symbol", h.Prices.GetPrice)
		api.GET("/chart/:symbol", h.Prices.GetChart)
		api.GET("/supports/:symbol", h.Supports.GetLevels)
		api.GET("/supports/:symbol/active", h.Supports.GetActive)
	}

	// 管理者のみ
	admin := api.Group("/admin")
	admin.Use(jwtmw.AdminRequired(jwtSecret))
	{
		admin.DELETE("/cache", h.Cache.Invalidate)
	}

	// ライブ配信
	r.GET("/ws", h.Stream.ServeWS)

	return r
}

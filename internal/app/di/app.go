package di

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"support_tracker/internal/app/router"
	candleshandler "support_tracker/internal/feature/candles/transport/handler"
	candlesusecase "support_tracker/internal/feature/candles/usecase"
	priceshandler "support_tracker/internal/feature/prices/transport/handler"
	pricesusecase "support_tracker/internal/feature/prices/usecase"
	streamws "support_tracker/internal/feature/stream/transport/websocket"
	streamusecase "support_tracker/internal/feature/stream/usecase"
	"support_tracker/internal/feature/supports/detector"
	supportshandler "support_tracker/internal/feature/supports/transport/handler"
	supportsusecase "support_tracker/internal/feature/supports/usecase"
	symbollistadapters "support_tracker/internal/feature/symbollist/adapters"
	symbollisthandler "support_tracker/internal/feature/symbollist/transport/handler"
	symbollistusecase "support_tracker/internal/feature/symbollist/usecase"
	"support_tracker/internal/platform/config"
	platformhandler "support_tracker/internal/platform/http/handler"
)

// App holds the long-lived components the server binary starts and stops.
type App struct {
	Router      *gin.Engine
	Hub         *streamws.Hub
	Broadcaster *streamusecase.Broadcaster
	Prices      *pricesusecase.PriceService
	Supports    *supportsusecase.SupportService
}

// NewApp wires every feature from cfg. rdb may be nil.
func NewApp(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*App, error) {
	market := NewMarket(cfg, rdb)

	// Usecase
	prices := pricesusecase.NewPriceService(market, pricesusecase.Config{
		CacheTTL:          cfg.Price.CacheTTL,
		VolumeProfileBins: cfg.Price.VolumeProfileBins,
		DefaultLimit:      cfg.Price.HistoryLimit,
	}, nil)
	det := detector.New(detector.Config{
		MinTouches:         cfg.Support.MinTouches,
		MinDistancePercent: cfg.Support.MinDistancePercent,
		Window:             cfg.Support.LocalMinWindow,
		TouchTolerance:     cfg.Support.TouchTolerance,
	})
	supports := supportsusecase.NewSupportService(market, prices, det, supportsusecase.Config{
		UpdateInterval:      cfg.Support.UpdateInterval,
		RetryBackoff:        cfg.Support.RetryBackoff,
		CandleInterval:      cfg.Support.CandleInterval,
		CandleLimit:         cfg.Support.CandleLimit,
		MaxDistancePercent:  cfg.Support.MaxDistancePercent,
		PlaceholderFallback: cfg.Support.PlaceholderFallback,
	}, nil)
	symbols := symbollistusecase.NewSymbolUsecase(symbollistadapters.NewStaticSymbolRepository(cfg.Symbols))
	candles := candlesusecase.NewCandlesUsecase(market, symbols)
	stream := streamusecase.NewStreamService(prices, supports)

	pairs, err := symbols.ActiveCodes(ctx)
	if err != nil {
		return nil, err
	}
	hub := streamws.NewHub(stream, streamws.Config{
		DefaultPair:      cfg.Stream.DefaultPair,
		DefaultTimeframe: cfg.Stream.DefaultTimeframe,
		AllowedPairs:     pairs,
	})
	broadcaster := streamusecase.NewBroadcaster(prices, supports, hub, cfg.Stream.TickInterval)

	// Handler
	invalidators := map[string]platformhandler.Invalidator{
		"prices": func(_ context.Context, symbol string) error {
			prices.Invalidate(symbol)
			return nil
		},
		"supports": func(_ context.Context, symbol string) error {
			supports.Invalidate(symbol)
			return nil
		},
	}
	deps := map[string]platformhandler.Pinger{}
	if rdb != nil {
		invalidators["redis"] = market.Cache.InvalidateSymbol
		deps["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		deps["redis"] = nil
	}

	handlers := router.Handlers{
		Health:   platformhandler.NewHealthHandler(deps),
		Cache:    platformhandler.NewCacheHandler(invalidators),
		Symbols:  symbollisthandler.NewSymbolHandler(symbols),
		Candles:  candleshandler.NewCandlesHandler(candles),
		Prices:   priceshandler.NewPriceHandler(prices),
		Supports: supportshandler.NewSupportHandler(supports, prices),
		Stream:   hub,
	}

	if cfg.JWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET is not set; admin routes will answer 500")
	}
	source := "binance"
	if cfg.OfflineCSVDir != "" {
		source = "csv:" + cfg.OfflineCSVDir
	}
	slog.Info("application wired", "market", source, "redis", rdb != nil, "pairs", pairs)

	return &App{
		Router:      router.NewRouter(handlers, cfg.JWTSecret),
		Hub:         hub,
		Broadcaster: broadcaster,
		Prices:      prices,
		Supports:    supports,
	}, nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"support_tracker/internal/platform/config"
	"support_tracker/internal/platform/externalapi/binance"
	"support_tracker/internal/platform/externalapi/csvfeed"
	infrahttp "support_tracker/internal/platform/http"
	"support_tracker/internal/shared/ratelimiter"
)

const fetchConcurrency = 4

func newFetchCmd() *cobra.Command {
	var (
		out      string
		interval string
		limit    int
		symbols  []string
	)
	cmd := &cobra.Command{
		Use:   "fetch --out DIR",
		Short: "Download candles from Binance into CSV files usable as OFFLINE_CSV_DIR",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				symbols = cfg.Symbols
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}

			b := cfg.Binance
			market := binance.NewMarket(binance.Config{
				BaseURL:           b.BaseURL,
				APIKey:            b.APIKey,
				SecretKey:         b.SecretKey,
				Timeout:           b.Timeout,
				RequestsPerMinute: b.RequestsPerMinute,
			}, infrahttp.NewHTTPClient(b.Timeout), ratelimiter.NewRateLimiter("binance", b.RequestsPerMinute, time.Minute))

			g, ctx := errgroup.WithContext(ctx)
			g.SetLimit(fetchConcurrency)
			for _, sym := range symbols {
				sym := strings.ToUpper(strings.TrimSpace(sym))
				g.Go(func() error {
					candles, err := market.GetCandles(ctx, sym, interval, limit)
					if err != nil {
						return err
					}
					path := filepath.Join(out, fmt.Sprintf("%s_%s.csv", sym, interval))
					f, err := os.Create(path)
					if err != nil {
						return err
					}
					if err := csvfeed.WriteCandles(f, candles); err != nil {
						_ = f.Close()
						return fmt.Errorf("write %s: %w", path, err)
					}
					if err := f.Close(); err != nil {
						return err
					}
					slog.Info("candles written", "symbol", sym, "interval", interval, "rows", len(candles), "file", path)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "fetched %d symbols into %s\n", len(symbols), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&interval, "interval", "1h", "kline interval")
	cmd.Flags().IntVar(&limit, "limit", 500, "candles per symbol (max 1000)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to fetch, defaults to SYMBOLS")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"support_tracker/internal/feature/supports/detector"
	"support_tracker/internal/feature/supports/domain/entity"
	"support_tracker/internal/platform/externalapi/csvfeed"
)

type detectOutput struct {
	Symbol   string                `json:"symbol"`
	Interval string                `json:"interval"`
	Candles  int                   `json:"candles"`
	Levels   []entity.SupportLevel `json:"levels"`
}

func newDetectCmd() *cobra.Command {
	var (
		file     string
		symbol   string
		interval string
		cfg      detector.Config
	)
	cmd := &cobra.Command{
		Use:   "detect --file candles.csv",
		Short: "Detect support levels in a candle CSV and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			if symbol == "" {
				symbol = symbolFromFile(file)
			}
			candles, err := csvfeed.ReadCandles(f, symbol, interval)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			levels, err := detector.New(cfg).Detect(symbol, candles)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(detectOutput{
				Symbol:   symbol,
				Interval: interval,
				Candles:  len(candles),
				Levels:   levels,
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "candle CSV (timestamp,open,high,low,close,volume)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol label, defaults to the file name prefix")
	cmd.Flags().StringVar(&interval, "interval", "1h", "candle interval label")
	cmd.Flags().IntVar(&cfg.MinTouches, "min-touches", 0, "minimum touches per level (0 = default)")
	cmd.Flags().IntVar(&cfg.Window, "window", 0, "local minimum half window (0 = default)")
	cmd.Flags().Float64Var(&cfg.TouchTolerance, "tolerance", 0, "relative touch band half-width (0 = default)")
	cmd.Flags().Float64Var(&cfg.MinDistancePercent, "min-distance", 0, "minimum level spacing percent (0 = default)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// symbolFromFile maps "data/BTCUSDT_1h.csv" to "BTCUSDT".
func symbolFromFile(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sym, _, _ := strings.Cut(base, "_")
	return strings.ToUpper(sym)
}

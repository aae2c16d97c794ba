package csvfeed

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
)

// CsvCandleDTO is one row of a candle file. Time is RFC 3339 or unix milliseconds.
type CsvCandleDTO struct {
	Timestamp string  `csv:"timestamp"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	Volume    float64 `csv:"volume"`
}

// ToModel converts the row into a candle of symbol and interval.
func (d CsvCandleDTO) ToModel(symbol, interval string) (candleentity.Candle, error) {
	ts, err := parseTimestamp(d.Timestamp)
	if err != nil {
		return candleentity.Candle{}, err
	}
	return candleentity.Candle{
		Symbol:   symbol,
		Interval: interval,
		Time:     ts,
		Open:     d.Open,
		High:     d.High,
		Low:      d.Low,
		Close:    d.Close,
		Volume:   d.Volume,
	}, nil
}

// ReadCandles parses a candle CSV with the header
// timestamp,open,high,low,close,volume and returns the rows time-ascending.
// Rows that are not internally consistent are rejected.
func ReadCandles(r io.Reader, symbol, interval string) ([]candleentity.Candle, error) {
	var rows []CsvCandleDTO
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decode candles csv: %w", err)
	}

	candles := make([]candleentity.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := row.ToModel(symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !c.Valid() {
			return nil, fmt.Errorf("row %d: inconsistent candle at %s", i+2, c.Time.Format(time.RFC3339))
		}
		candles = append(candles, c)
	}
	sort.SliceStable(candles, func(a, b int) bool {
		return candles[a].Time.Before(candles[b].Time)
	})
	return candles, nil
}

// WriteCandles encodes candles in the format ReadCandles accepts.
func WriteCandles(w io.Writer, candles []candleentity.Candle) error {
	rows := make([]CsvCandleDTO, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, CsvCandleDTO{
			Timestamp: c.Time.UTC().Format(time.RFC3339),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return gocsv.Marshal(&rows, w)
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

package cache

import (
	"strconv"
	"time"
)

// IntervalDuration converts a Binance kline interval ("1m", "4h", "1d", "1w")
// into a duration. Monthly ("1M") and unknown intervals return 0.
func IntervalDuration(interval string) time.Duration {
	if len(interval) < 2 {
		return 0
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0
	}
	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour
	}
	return 0
}

// TimeUntilNextCandle は指定された時間足で現在のローソク足が確定するまでの期間を返します。
// 月足は翌月1日(UTC)で確定します。不明な時間足の場合は0を返します。
func TimeUntilNextCandle(interval string, now time.Time) time.Duration {
	now = now.UTC()
	if interval == "1M" {
		next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return next.Sub(now)
	}

	d := IntervalDuration(interval)
	if d <= 0 {
		return 0
	}
	// time.Truncate は絶対時刻基準のため、日足以下は UTC 0時、週足は月曜に揃う
	next := now.Truncate(d).Add(d)
	return next.Sub(now)
}

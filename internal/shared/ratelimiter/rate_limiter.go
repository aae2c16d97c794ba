// Package ratelimiter paces calls to rate-limited upstream APIs.
package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiter は interval あたり limit 回まで呼び出しを許可します。
// 上限分のバーストを許し、トークンは interval/limit ごとに1つ補充されます。
type RateLimiter struct {
	name     string
	limit    int
	interval time.Duration
	lim      *rate.Limiter
}

var _ RateLimiterInterface = (*RateLimiter)(nil)

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
// limit が 0 以下の場合は無制限になります。
func NewRateLimiter(name string, limit int, interval time.Duration) *RateLimiter {
	lim := rate.NewLimiter(rate.Inf, 0)
	if limit > 0 && interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit)
	}
	return &RateLimiter{name: name, limit: limit, interval: interval, lim: lim}
}

// Wait はトークンが得られるまで待機します。ctx がキャンセルされた場合はそのエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.lim.Tokens() < 1 {
		slog.Debug("rate limit reached, waiting", "limiter", rl.name, "limit", rl.limit, "interval", rl.interval)
	}
	return rl.lim.Wait(ctx)
}

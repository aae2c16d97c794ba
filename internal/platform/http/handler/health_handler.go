// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger は依存サービスの疎通確認を行います。*redis.Client の Ping をラップして渡します。
type Pinger func(ctx context.Context) error

// HealthHandler は /healthz を処理します。
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler は依存サービス名と疎通確認関数の組からHealthHandlerを生成します。
// nil の Pinger は "disabled" として報告されます。
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// 依存サービスのいずれかが応答しない場合は503を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusNoContent)
		return
	}

	status, deps := h.check(c.Request.Context())
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	if c.Request.Method == http.MethodHead {
		c.Status(code)
		return
	}

	body := gin.H{"status": status}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	c.JSON(code, body)
}

func (h *HealthHandler) check(ctx context.Context) (string, map[string]string) {
	status := "ok"
	out := make(map[string]string, len(h.deps))
	for name, ping := range h.deps {
		if ping == nil {
			out[name] = "disabled"
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		err := ping(pctx)
		cancel()
		if err != nil {
			out[name] = "down"
			status = "degraded"
			continue
		}
		out[name] = "ok"
	}
	return status, out
}

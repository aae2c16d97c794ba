package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"support_tracker/internal/api"
)

// Invalidator はキャッシュから銘柄のエントリを削除します。symbol が空の場合は全体が対象です。
type Invalidator func(ctx context.Context, symbol string) error

// CacheHandler は管理者向けのキャッシュ無効化APIを処理します。
type CacheHandler struct {
	caches map[string]Invalidator
}

// NewCacheHandler はキャッシュ名と無効化関数の組からCacheHandlerを生成します。
func NewCacheHandler(caches map[string]Invalidator) *CacheHandler {
	return &CacheHandler{caches: caches}
}

// Invalidate は DELETE /api/admin/cache?symbol= を処理します。
// すべてのキャッシュを試行し、1つでも失敗した場合は500を返します。
func (h *CacheHandler) Invalidate(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	ctx := c.Request.Context()

	names := make([]string, 0, len(h.caches))
	for name := range h.caches {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		if err := h.caches[name](ctx, symbol); err != nil {
			slog.Error("cache invalidation failed", "cache", name, "symbol", symbol, "error", err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to invalidate: " + strings.Join(failed, ", ")})
		return
	}

	slog.Info("caches invalidated", "symbol", symbol, "caches", names)
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "invalidated": names})
}

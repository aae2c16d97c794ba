// Package adapters はsymbollistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"strings"

	"support_tracker/internal/feature/symbollist/domain/entity"
	"support_tracker/internal/feature/symbollist/usecase"
)

// quoteAssets は銘柄コードから基軸通貨を切り出すための候補です。長いものから順に照合します。
var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB", "EUR", "TRY"}

// staticSymbols は設定ファイルで指定された取引ペアを返すSymbolRepository実装です。
type staticSymbols struct {
	symbols []entity.Symbol
}

var _ usecase.SymbolRepository = (*staticSymbols)(nil)

// NewStaticSymbolRepository は設定された順序のまま取引ペア一覧を保持するリポジトリを生成します。
// 大文字に正規化し、空文字と重複は取り除きます。
func NewStaticSymbolRepository(codes []string) *staticSymbols {
	seen := make(map[string]struct{}, len(codes))
	symbols := make([]entity.Symbol, 0, len(codes))
	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		base, quote := splitPair(code)
		symbols = append(symbols, entity.Symbol{
			Code:    code,
			Base:    base,
			Quote:   quote,
			SortKey: len(symbols) + 1,
		})
	}
	return &staticSymbols{symbols: symbols}
}

// ListActive はsort_key順にすべての取引ペアを返します。
func (r *staticSymbols) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]entity.Symbol, len(r.symbols))
	copy(out, r.symbols)
	return out, nil
}

// ListActiveCodes はsort_key順に取引ペアのコードのみを返します。
func (r *staticSymbols) ListActiveCodes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(r.symbols))
	for _, s := range r.symbols {
		codes = append(codes, s.Code)
	}
	return codes, nil
}

func splitPair(code string) (base, quote string) {
	for _, q := range quoteAssets {
		if len(code) > len(q) && strings.HasSuffix(code, q) {
			return strings.TrimSuffix(code, q), q
		}
	}
	return "", ""
}

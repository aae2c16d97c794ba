// Package usecase implements the business logic for symbol-related operations.
package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"support_tracker/internal/feature/symbollist/domain/entity"
)

// SymbolRepository abstracts where the tradable pairs come from.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SymbolRepository interface {
	ListActive(ctx context.Context) ([]entity.Symbol, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
}

// SymbolUsecase provides business logic for symbol operations.
type SymbolUsecase struct {
	repo SymbolRepository
}

// NewSymbolUsecase creates a new SymbolUsecase with the given repository.
func NewSymbolUsecase(r SymbolRepository) *SymbolUsecase {
	return &SymbolUsecase{repo: r}
}

// ListActiveSymbols returns the active pairs ordered by SortKey, then Code.
// A non-empty quote keeps only pairs quoted in that asset, case-insensitively.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context, quote string) ([]entity.Symbol, error) {
	symbols, err := u.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	quote = strings.ToUpper(strings.TrimSpace(quote))
	out := make([]entity.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if quote != "" && s.Quote != quote {
			continue
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b entity.Symbol) int {
		if a.SortKey != b.SortKey {
			return a.SortKey - b.SortKey
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out, nil
}

// ActiveCodes returns the codes of all active pairs in display order.
func (u *SymbolUsecase) ActiveCodes(ctx context.Context) ([]string, error) {
	return u.repo.ListActiveCodes(ctx)
}

// IsActive reports whether code names an active pair. The code is matched
// after trimming and upper-casing.
func (u *SymbolUsecase) IsActive(ctx context.Context, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false, nil
	}
	codes, err := u.repo.ListActiveCodes(ctx)
	if err != nil {
		return false, fmt.Errorf("list symbol codes: %w", err)
	}
	return slices.Contains(codes, code), nil
}

package usecase

import "errors"

var (
	// ErrEmptySymbol は取引ペアが指定されていない場合のエラーです。
	ErrEmptySymbol = errors.New("symbol is required")
	// ErrUnknownSymbol は設定されていない取引ペアが指定された場合のエラーです。
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInvalidInterval は取引所が扱わない時間足が指定された場合のエラーです。
	ErrInvalidInterval = errors.New("invalid interval")
)

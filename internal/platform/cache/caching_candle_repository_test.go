package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/prices/domain/entity"
)

// mockMarketRepository はテスト用のMarketRepositoryモック実装です。
type mockMarketRepository struct {
	getCandlesFn      func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error)
	getCurrentPriceFn func(ctx context.Context, symbol string) (*entity.Ticker, error)
}

func (m *mockMarketRepository) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
	if m.getCandlesFn != nil {
		return m.getCandlesFn(ctx, symbol, interval, limit)
	}
	return nil, nil
}

func (m *mockMarketRepository) GetCurrentPrice(ctx context.Context, symbol string) (*entity.Ticker, error) {
	if m.getCurrentPriceFn != nil {
		return m.getCurrentPriceFn(ctx, symbol)
	}
	return nil, nil
}

// fixedNow は1時間足の確定まで十分な余裕がある時刻を返します。
func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
}

var testCandles = []candleentity.Candle{
	{Symbol: "BTCUSDT", Interval: "1h", Open: 42000, High: 42500, Low: 41800, Close: 42300, Volume: 12.5},
}

// TestNewCachingCandleRepository_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingCandleRepository_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"default values when zero/empty", 0, "", time.Minute, "candles"},
		{"negative ttl uses default", -1 * time.Minute, "", time.Minute, "candles"},
		{"custom values preserved", 10 * time.Minute, "custom", 10 * time.Minute, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewCachingCandleRepository(nil, tt.ttl, &mockMarketRepository{}, tt.namespace)

			if repo.ttl != tt.expectedTTL {
				t.Errorf("expected TTL %v, got %v", tt.expectedTTL, repo.ttl)
			}
			if repo.namespace != tt.expectedNamespace {
				t.Errorf("expected namespace %q, got %q", tt.expectedNamespace, repo.namespace)
			}
		})
	}
}

// TestCachingCandleRepository_GetCandles_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingCandleRepository_GetCandles_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockMarketRepository{
		getCandlesFn: func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
			return testCandles, nil
		},
	}

	repo := NewCachingCandleRepository(nil, time.Minute, inner, "candles")

	candles, err := repo.GetCandles(context.Background(), "BTCUSDT", "1h", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 1 {
		t.Errorf("expected 1 candle, got %d", len(candles))
	}
}

// TestCachingCandleRepository_GetCandles_CacheHit はキャッシュヒット時に内部リポジトリを呼ばないことを検証します。
func TestCachingCandleRepository_GetCandles_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cachedJSON, _ := json.Marshal(testCandles)
	mock.ExpectGet("candles:BTCUSDT:1h:500").SetVal(string(cachedJSON))

	innerCalled := false
	inner := &mockMarketRepository{
		getCandlesFn: func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
			innerCalled = true
			return nil, nil
		},
	}

	repo := NewCachingCandleRepository(rdb, time.Minute, inner, "candles")
	candles, err := repo.GetCandles(context.Background(), "BTCUSDT", "1h", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerCalled {
		t.Error("inner repository should not be called on cache hit")
	}
	if len(candles) != 1 || candles[0].Close != 42300 {
		t.Errorf("unexpected candles from cache: %+v", candles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingCandleRepository_GetCandles_CacheMiss はキャッシュミス時に取引所から取得し保存することを検証します。
func TestCachingCandleRepository_GetCandles_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(testCandles)
	mock.ExpectGet("candles:BTCUSDT:1h:500").RedisNil()
	mock.ExpectSet("candles:BTCUSDT:1h:500", expectedJSON, time.Minute).SetVal("OK")

	inner := &mockMarketRepository{
		getCandlesFn: func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
			return testCandles, nil
		},
	}

	repo := NewCachingCandleRepository(rdb, time.Minute, inner, "candles")
	repo.now = fixedNow
	candles, err := repo.GetCandles(context.Background(), "BTCUSDT", "1h", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 1 {
		t.Errorf("expected 1 candle, got %d", len(candles))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingCandleRepository_GetCandles_TTLCappedAtCandleClose はTTLが現在の足の確定時刻で打ち切られることを検証します。
func TestCachingCandleRepository_GetCandles_TTLCappedAtCandleClose(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(testCandles)
	mock.ExpectGet("candles:BTCUSDT:1h:500").RedisNil()
	mock.ExpectSet("candles:BTCUSDT:1h:500", expectedJSON, 30*time.Second).SetVal("OK")

	inner := &mockMarketRepository{
		getCandlesFn: func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
			return testCandles, nil
		},
	}

	repo := NewCachingCandleRepository(rdb, 5*time.Minute, inner, "candles")
	repo.now = func() time.Time { return time.Date(2024, 1, 1, 10, 59, 30, 0, time.UTC) }

	if _, err := repo.GetCandles(context.Background(), "BTCUSDT", "1h", 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingCandleRepository_GetCandles_InnerError は内部リポジトリのエラーが伝播されることを検証します。
func TestCachingCandleRepository_GetCandles_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("binance unavailable")
	mock.ExpectGet("candles:BTCUSDT:1h:500").RedisNil()

	inner := &mockMarketRepository{
		getCandlesFn: func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
			return nil, expectedErr
		},
	}

	repo := NewCachingCandleRepository(rdb, time.Minute, inner, "candles")
	_, err := repo.GetCandles(context.Background(), "BTCUSDT", "1h", 500)

	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

// TestCachingCandleRepository_GetCandles_CorruptedCache は破損したキャッシュを削除し取引所にフォールバックすることを検証します。
func TestCachingCandleRepository_GetCandles_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(testCandles)
	mock.ExpectGet("candles:BTCUSDT:1h:500").SetVal("invalid json")
	mock.ExpectDel("candles:BTCUSDT:1h:500").SetVal(1)
	mock.ExpectSet("candles:BTCUSDT:1h:500", expectedJSON, time.Minute).SetVal("OK")

	inner := &mockMarketRepository{
		getCandlesFn: func(ctx context.Context, symbol, interval string, limit int) ([]candleentity.Candle, error) {
			return testCandles, nil
		},
	}

	repo := NewCachingCandleRepository(rdb, time.Minute, inner, "candles")
	repo.now = fixedNow
	candles, err := repo.GetCandles(context.Background(), "BTCUSDT", "1h", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 1 {
		t.Errorf("expected 1 candle, got %d", len(candles))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingCandleRepository_GetCurrentPrice_PassThrough は現在価格がキャッシュされないことを検証します。
func TestCachingCandleRepository_GetCurrentPrice_PassThrough(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	calls := 0
	inner := &mockMarketRepository{
		getCurrentPriceFn: func(ctx context.Context, symbol string) (*entity.Ticker, error) {
			calls++
			return &entity.Ticker{Symbol: symbol, Price: 42000}, nil
		},
	}

	repo := NewCachingCandleRepository(rdb, time.Minute, inner, "candles")
	for i := 0; i < 2; i++ {
		tk, err := repo.GetCurrentPrice(context.Background(), "BTCUSDT")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tk.Price != 42000 {
			t.Errorf("expected price 42000, got %f", tk.Price)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected redis traffic: %v", err)
	}
}

// TestCachingCandleRepository_InvalidateSymbol は指定銘柄のキーのみがSCAN/DELされることを検証します。
func TestCachingCandleRepository_InvalidateSymbol(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "candles:BTCUSDT:*", 200).SetVal([]string{"candles:BTCUSDT:1h:500", "candles:BTCUSDT:4h:500"}, 0)
	mock.ExpectDel("candles:BTCUSDT:1h:500", "candles:BTCUSDT:4h:500").SetVal(2)

	repo := NewCachingCandleRepository(rdb, time.Minute, &mockMarketRepository{}, "candles")
	if err := repo.InvalidateSymbol(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingCandleRepository_InvalidateSymbol_All は空の銘柄で名前空間全体が対象になることを検証します。
func TestCachingCandleRepository_InvalidateSymbol_All(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "candles:*", 200).SetVal([]string{}, 0)

	repo := NewCachingCandleRepository(rdb, time.Minute, &mockMarketRepository{}, "candles")
	if err := repo.InvalidateSymbol(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestSafe はsafe関数がRedisキーで問題となる文字を正しくエスケープすることを検証します。
func TestSafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"BTCUSDT", "BTCUSDT"},
		{"BTC USDT", "BTC_USDT"},
		{"key:value", "key_value"},
		{"", ""},
		{"::", "__"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if result := safe(tt.input); result != tt.expected {
				t.Errorf("safe(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

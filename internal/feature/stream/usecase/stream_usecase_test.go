package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/stream/domain/entity"
	supportentity "support_tracker/internal/feature/supports/domain/entity"
	supportusecase "support_tracker/internal/feature/supports/usecase"
)

var errUpstream = errors.New("upstream down")

type mockPrices struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func (m *mockPrices) set(pair string, p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[pair] = p
}

func (m *mockPrices) CurrentPrice(ctx context.Context, symbol string) (*priceentity.Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &priceentity.Ticker{Symbol: symbol, Price: m.prices[symbol]}, nil
}

func (m *mockPrices) Historical(ctx context.Context, symbol, interval string, limit int) (*priceentity.HistoricalData, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &priceentity.HistoricalData{
		Price:         []priceentity.PricePoint{{Close: m.prices[symbol]}},
		VolumeProfile: []priceentity.VolumeProfileBin{},
	}, nil
}

type mockSupports struct {
	mu          sync.Mutex
	levels      []supportentity.SupportLevel
	err         error
	due         bool
	levelsCalls int
}

func (m *mockSupports) Levels(ctx context.Context, symbol string, force bool) ([]supportentity.SupportLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levelsCalls++
	m.due = false
	return m.levels, m.err
}

func (m *mockSupports) ShouldUpdate(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.due
}

func (m *mockSupports) WithDistance(price float64, levels []supportentity.SupportLevel) []supportentity.SupportLevel {
	out := supportentity.CloneLevels(levels)
	for i := range out {
		d := (price - out[i].Price) / price * 100
		out[i].Distance = &d
	}
	return out
}

type published struct {
	pair string
	ev   entity.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	pairs  []string
	events []published
}

func (p *recordingPublisher) Pairs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pairs...)
}

func (p *recordingPublisher) Publish(pair string, ev entity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{pair: pair, ev: ev})
}

func (p *recordingPublisher) take() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.events
	p.events = nil
	return out
}

func types(ps []published) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.pair + ":" + p.ev.Type
	}
	return out
}

func sampleLevels() []supportentity.SupportLevel {
	return []supportentity.SupportLevel{{Price: 20000, Strength: 90, Touches: 4}}
}

func TestStreamService_Initial(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{"BTCUSDT": 20500}}
	supports := &mockSupports{levels: sampleLevels()}
	svc := NewStreamService(prices, supports)

	events := svc.Initial(context.Background(), "BTCUSDT", "1h")
	require.Len(t, events, 1)
	assert.Equal(t, entity.TypeInitialData, events[0].Type)

	data, ok := events[0].Data.(entity.InitialData)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", data.Pair)
	assert.Equal(t, "1h", data.Timeframe)
	require.NotNil(t, data.PriceData)
	assert.Equal(t, 20500.0, data.PriceData.Price)
	require.Len(t, data.SupportLevels, 1)
	require.NotNil(t, data.SupportLevels[0].Distance)
}

func TestStreamService_InitialDegradesOnFailure(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{}, err: errUpstream}
	supports := &mockSupports{levels: []supportentity.SupportLevel{}, err: supportusecase.ErrFetchFailed}
	svc := NewStreamService(prices, supports)

	events := svc.Initial(context.Background(), "BTCUSDT", "1h")
	require.Len(t, events, 1)
	data := events[0].Data.(entity.InitialData)
	assert.Nil(t, data.PriceData)
	assert.NotNil(t, data.SupportLevels)
	assert.Empty(t, data.SupportLevels)
}

func TestStreamService_PairChanged(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{"ETHUSDT": 2000}}

	t.Run("price and supports", func(t *testing.T) {
		svc := NewStreamService(prices, &mockSupports{levels: sampleLevels()})
		events := svc.PairChanged(context.Background(), "ETHUSDT")
		require.Len(t, events, 2)
		assert.Equal(t, entity.TypePriceUpdate, events[0].Type)
		assert.Equal(t, entity.TypeSupportUpdate, events[1].Type)
		assert.Equal(t, "ETHUSDT", events[1].Data.(entity.SupportUpdate).Pair)
	})

	t.Run("stale supports are flagged", func(t *testing.T) {
		stale := fmt.Errorf("%w: %w", supportusecase.ErrStale, supportusecase.ErrFetchFailed)
		svc := NewStreamService(prices, &mockSupports{levels: sampleLevels(), err: stale})
		events := svc.PairChanged(context.Background(), "ETHUSDT")
		require.Len(t, events, 2)
		assert.True(t, events[1].Data.(entity.SupportUpdate).Stale)
	})

	t.Run("failed supports are omitted", func(t *testing.T) {
		svc := NewStreamService(prices, &mockSupports{err: supportusecase.ErrNoData})
		events := svc.PairChanged(context.Background(), "ETHUSDT")
		require.Len(t, events, 1)
		assert.Equal(t, entity.TypePriceUpdate, events[0].Type)
	})
}

func TestStreamService_TimeframeChanged(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{"BTCUSDT": 20500}}
	svc := NewStreamService(prices, &mockSupports{})

	events := svc.TimeframeChanged(context.Background(), "BTCUSDT", "4h")
	require.Len(t, events, 1)
	chart := events[0].Data.(entity.ChartUpdate)
	assert.Equal(t, "4h", chart.Timeframe)
	assert.Len(t, chart.Price, 1)

	prices.err = errUpstream
	assert.Empty(t, svc.TimeframeChanged(context.Background(), "BTCUSDT", "4h"))
}

func TestBroadcaster_TickPublishesPriceChangesOnly(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{"BTCUSDT": 20500, "ETHUSDT": 2000}}
	supports := &mockSupports{}
	pub := &recordingPublisher{pairs: []string{"BTCUSDT", "ETHUSDT"}}
	b := NewBroadcaster(prices, supports, pub, time.Second)
	ctx := context.Background()

	b.Tick(ctx)
	assert.Equal(t, []string{"BTCUSDT:price_update", "ETHUSDT:price_update"}, types(pub.take()))

	b.Tick(ctx)
	assert.Empty(t, pub.take(), "unchanged prices are not pushed again")

	prices.set("ETHUSDT", 2001)
	b.Tick(ctx)
	assert.Equal(t, []string{"ETHUSDT:price_update"}, types(pub.take()))
}

func TestBroadcaster_TickPublishesDueSupports(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{"BTCUSDT": 20500}}
	supports := &mockSupports{levels: sampleLevels(), due: true}
	pub := &recordingPublisher{pairs: []string{"BTCUSDT"}}
	b := NewBroadcaster(prices, supports, pub, time.Second)
	ctx := context.Background()

	b.Tick(ctx)
	got := pub.take()
	assert.Equal(t, []string{"BTCUSDT:price_update", "BTCUSDT:support_update"}, types(got))
	update := got[1].ev.Data.(entity.SupportUpdate)
	require.Len(t, update.Levels, 1)
	require.NotNil(t, update.Levels[0].Distance)
	assert.InDelta(t, 2.439, *update.Levels[0].Distance, 0.001)

	// not due any more
	b.Tick(ctx)
	assert.Empty(t, pub.take())
	assert.Equal(t, 1, supports.levelsCalls)
}

func TestBroadcaster_TickSkipsFailedSupports(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{}, err: errUpstream}
	supports := &mockSupports{levels: sampleLevels(), err: supportusecase.ErrStale, due: true}
	pub := &recordingPublisher{pairs: []string{"BTCUSDT"}}
	b := NewBroadcaster(prices, supports, pub, time.Second)

	b.Tick(context.Background())
	assert.Empty(t, pub.take())
}

func TestBroadcaster_StartStop(t *testing.T) {
	prices := &mockPrices{prices: map[string]float64{"BTCUSDT": 20500}}
	pub := &recordingPublisher{pairs: []string{"BTCUSDT"}}
	b := NewBroadcaster(prices, &mockSupports{}, pub, 5*time.Millisecond)

	b.Start(context.Background())
	b.Start(context.Background()) // no-op

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.events) > 0
	}, time.Second, 5*time.Millisecond)

	b.Stop()
	pub.take()
	prices.set("BTCUSDT", 1)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, pub.take(), "no ticks after Stop")

	b.Stop() // idempotent
}

func TestBroadcaster_StopsWithParentContext(t *testing.T) {
	pub := &recordingPublisher{}
	b := NewBroadcaster(&mockPrices{prices: map[string]float64{}}, &mockSupports{}, pub, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the parent context was cancelled")
	}
}

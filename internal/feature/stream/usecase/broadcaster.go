package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"support_tracker/internal/feature/stream/domain/entity"
)

// DefaultTickInterval is the broadcast cadence.
const DefaultTickInterval = time.Second

// Publisher delivers events to the listeners of a pair.
type Publisher interface {
	// Pairs lists the pairs that currently have at least one listener.
	Pairs() []string
	Publish(pair string, ev entity.Event)
}

// Broadcaster periodically pushes price changes and due support updates for
// every pair somebody listens to. Start and Stop bound its lifetime.
type Broadcaster struct {
	prices   PriceUsecase
	supports SupportUsecase
	pub      Publisher
	interval time.Duration

	mu        sync.Mutex
	lastPrice map[string]float64
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewBroadcaster returns a Broadcaster. A non-positive interval uses DefaultTickInterval.
func NewBroadcaster(prices PriceUsecase, supports SupportUsecase, pub Publisher, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Broadcaster{
		prices:    prices,
		supports:  supports,
		pub:       pub,
		interval:  interval,
		lastPrice: make(map[string]float64),
	}
}

// Start launches the broadcast loop. It returns immediately; calling Start
// on a running Broadcaster is a no-op.
func (b *Broadcaster) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.run(ctx, b.done)
	slog.Info("broadcaster started", "interval", b.interval)
}

// Stop cancels the loop and waits for the tick in progress to finish.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("broadcaster stopped")
}

func (b *Broadcaster) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// Tick runs one broadcast round over all listened pairs.
func (b *Broadcaster) Tick(ctx context.Context) {
	for _, pair := range b.pub.Pairs() {
		if ctx.Err() != nil {
			return
		}
		b.tickPair(ctx, pair)
	}
}

func (b *Broadcaster) tickPair(ctx context.Context, pair string) {
	var price float64
	t, err := b.prices.CurrentPrice(ctx, pair)
	if err != nil {
		slog.Debug("broadcast: price unavailable", "pair", pair, "error", err)
	} else if t != nil {
		price = t.Price
		if b.priceChanged(pair, price) {
			b.pub.Publish(pair, entity.Event{Type: entity.TypePriceUpdate, Data: t})
		}
	}

	if !b.supports.ShouldUpdate(pair) {
		return
	}
	levels, err := b.supports.Levels(ctx, pair, false)
	if err != nil {
		// listeners keep what they already have
		slog.Warn("broadcast: support update failed", "pair", pair, "error", err)
		return
	}
	if len(levels) == 0 {
		return
	}
	if price > 0 {
		levels = b.supports.WithDistance(price, levels)
	}
	b.pub.Publish(pair, SupportEvent(pair, levels, false))
}

func (b *Broadcaster) priceChanged(pair string, price float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	last, ok := b.lastPrice[pair]
	if ok && last == price {
		return false
	}
	b.lastPrice[pair] = price
	return true
}

// Package websocket serves the live update stream over gorilla websockets.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/stream/domain/entity"
	"support_tracker/internal/feature/stream/usecase"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// StreamUsecase builds the events a client receives in reply to its own actions.
type StreamUsecase interface {
	Initial(ctx context.Context, pair, timeframe string) []entity.Event
	PairChanged(ctx context.Context, pair string) []entity.Event
	TimeframeChanged(ctx context.Context, pair, timeframe string) []entity.Event
}

var _ usecase.Publisher = (*Hub)(nil)

// Config holds the hub settings.
type Config struct {
	DefaultPair      string
	DefaultTimeframe string
	// AllowedPairs restricts change_pair. Empty allows any pair.
	AllowedPairs []string
}

// Hub tracks connected clients and the pair and timeframe each one follows.
type Hub struct {
	uc       StreamUsecase
	cfg      Config
	allowed  map[string]bool
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewHub returns a Hub.
func NewHub(uc StreamUsecase, cfg Config) *Hub {
	if cfg.DefaultPair == "" {
		cfg.DefaultPair = "BTCUSDT"
	}
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = "1h"
	}
	allowed := make(map[string]bool, len(cfg.AllowedPairs))
	for _, p := range cfg.AllowedPairs {
		allowed[strings.ToUpper(p)] = true
	}
	return &Hub{
		uc:      uc,
		cfg:     cfg,
		allowed: allowed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	cl := newClient(h, conn, h.cfg.DefaultPair, h.cfg.DefaultTimeframe)
	if !h.register(cl) {
		_ = conn.Close()
		return
	}
	slog.Info("websocket client connected", "client", cl.id, "remote", c.ClientIP())

	go cl.writePump()

	ctx := c.Request.Context()
	pair, tf := cl.selection()
	cl.enqueue(h.uc.Initial(ctx, pair, tf)...)

	cl.readPump(ctx)
	h.unregister(cl)
	slog.Info("websocket client disconnected", "client", cl.id)
}

// Pairs returns the sorted pairs followed by at least one client.
func (h *Hub) Pairs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	for _, cl := range h.clients {
		p, _ := cl.selection()
		seen[p] = true
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Publish sends ev to every client following pair.
func (h *Hub) Publish(pair string, ev entity.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		if p, _ := cl.selection(); p == pair {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		cl.send(b)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		cl.close()
	}
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl.id] = cl
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl.id)
	h.mu.Unlock()
	cl.close()
}

// handle applies one client message and replies to that client only.
func (h *Hub) handle(ctx context.Context, cl *client, msg entity.ClientMessage) {
	switch msg.Type {
	case entity.TypeChangePair:
		var req entity.ChangePair
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Pair == "" {
			cl.enqueue(errorEvent("change_pair requires a pair"))
			return
		}
		pair := strings.ToUpper(req.Pair)
		if len(h.allowed) > 0 && !h.allowed[pair] {
			cl.enqueue(errorEvent("unknown pair " + pair))
			return
		}
		cl.setPair(pair)
		cl.enqueue(h.uc.PairChanged(ctx, pair)...)

	case entity.TypeChangeTimeframe:
		var req entity.ChangeTimeframe
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Timeframe == "" {
			cl.enqueue(errorEvent("change_timeframe requires a timeframe"))
			return
		}
		if !candleentity.ValidInterval(req.Timeframe) {
			cl.enqueue(errorEvent("unsupported timeframe " + req.Timeframe))
			return
		}
		cl.setTimeframe(req.Timeframe)
		pair, tf := cl.selection()
		cl.enqueue(h.uc.TimeframeChanged(ctx, pair, tf)...)

	default:
		cl.enqueue(errorEvent("unknown message type " + msg.Type))
	}
}

func errorEvent(msg string) entity.Event {
	return entity.Event{Type: entity.TypeError, Data: entity.ErrorMessage{Message: msg}}
}

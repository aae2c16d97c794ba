package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"support_tracker/internal/feature/stream/domain/entity"
)

// client is one websocket connection. The read pump runs on the handler
// goroutine, the write pump on its own; only the write pump writes to conn.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	mu        sync.RWMutex
	pair      string
	timeframe string

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn, pair, timeframe string) *client {
	return &client{
		id:        uuid.NewString(),
		hub:       h,
		conn:      conn,
		out:       make(chan []byte, sendBuffer),
		pair:      pair,
		timeframe: timeframe,
		done:      make(chan struct{}),
	}
}

func (c *client) selection() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair, c.timeframe
}

func (c *client) setPair(p string) {
	c.mu.Lock()
	c.pair = p
	c.mu.Unlock()
}

func (c *client) setTimeframe(tf string) {
	c.mu.Lock()
	c.timeframe = tf
	c.mu.Unlock()
}

func (c *client) enqueue(events ...entity.Event) {
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			slog.Error("failed to encode event", "type", ev.Type, "error", err)
			continue
		}
		c.send(b)
	}
}

// send queues b without blocking. A client whose buffer is full is dropped.
func (c *client) send(b []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.out <- b:
	case <-c.done:
	default:
		slog.Warn("websocket client too slow, disconnecting", "client", c.id)
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg entity.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "client", c.id, "error", err)
			}
			return
		}
		c.hub.handle(ctx, c, msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case b := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	priceentity "support_tracker/internal/feature/prices/domain/entity"
	"support_tracker/internal/feature/stream/domain/entity"
)

// mockStreamUsecase はStreamUsecaseインターフェースのモック実装です。
type mockStreamUsecase struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockStreamUsecase) record(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, s)
}

func (m *mockStreamUsecase) Initial(ctx context.Context, pair, timeframe string) []entity.Event {
	m.record("initial " + pair + " " + timeframe)
	return []entity.Event{{Type: entity.TypeInitialData, Data: entity.InitialData{Pair: pair, Timeframe: timeframe}}}
}

func (m *mockStreamUsecase) PairChanged(ctx context.Context, pair string) []entity.Event {
	m.record("pair " + pair)
	return []entity.Event{
		{Type: entity.TypePriceUpdate, Data: priceentity.Ticker{Symbol: pair, Price: 2000}},
		{Type: entity.TypeSupportUpdate, Data: entity.SupportUpdate{Pair: pair}},
	}
}

func (m *mockStreamUsecase) TimeframeChanged(ctx context.Context, pair, timeframe string) []entity.Event {
	m.record("timeframe " + pair + " " + timeframe)
	return []entity.Event{{Type: entity.TypeChartUpdate, Data: entity.ChartUpdate{Pair: pair, Timeframe: timeframe}}}
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestHub(t *testing.T, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(&mockStreamUsecase{}, cfg)
	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_InitialData(t *testing.T) {
	hub, srv := newTestHub(t, Config{DefaultPair: "BTCUSDT", DefaultTimeframe: "4h"})
	conn := dial(t, srv)

	msg := read(t, conn)
	assert.Equal(t, entity.TypeInitialData, msg.Type)
	assert.JSONEq(t, `{"pair":"BTCUSDT","timeframe":"4h","price_data":null,"support_levels":null}`, string(msg.Data))

	assert.Equal(t, []string{"BTCUSDT"}, hub.Pairs())
	assert.Equal(t, 1, hub.Len())
}

func TestHub_ChangePairAndTimeframe(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dial(t, srv)
	read(t, conn) // initial_data

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "change_pair", "data": map[string]string{"pair": "ethusdt"}}))
	assert.Equal(t, entity.TypePriceUpdate, read(t, conn).Type)
	assert.Equal(t, entity.TypeSupportUpdate, read(t, conn).Type)
	assert.Equal(t, []string{"ETHUSDT"}, hub.Pairs())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "change_timeframe", "data": map[string]string{"timeframe": "1d"}}))
	msg := read(t, conn)
	assert.Equal(t, entity.TypeChartUpdate, msg.Type)
	assert.JSONEq(t, `{"pair":"ETHUSDT","timeframe":"1d"}`, string(msg.Data))
}

func TestHub_RejectsBadMessages(t *testing.T) {
	_, srv := newTestHub(t, Config{AllowedPairs: []string{"BTCUSDT", "ETHUSDT"}})
	conn := dial(t, srv)
	read(t, conn)

	cases := []struct {
		msg  any
		want string
	}{
		{map[string]any{"type": "change_pair", "data": map[string]string{"pair": "DOGEUSDT"}}, "unknown pair DOGEUSDT"},
		{map[string]any{"type": "change_pair", "data": map[string]string{}}, "change_pair requires a pair"},
		{map[string]any{"type": "change_timeframe"}, "change_timeframe requires a timeframe"},
		{map[string]any{"type": "change_timeframe", "data": map[string]string{"timeframe": "1day"}}, "unsupported timeframe 1day"},
		{map[string]any{"type": "subscribe"}, "unknown message type subscribe"},
	}
	for _, tc := range cases {
		require.NoError(t, conn.WriteJSON(tc.msg))
		msg := read(t, conn)
		assert.Equal(t, entity.TypeError, msg.Type)
		assert.JSONEq(t, `{"message":"`+tc.want+`"}`, string(msg.Data))
	}
}

func TestHub_PublishReachesOnlyFollowers(t *testing.T) {
	hub, srv := newTestHub(t, Config{DefaultPair: "BTCUSDT"})
	btc := dial(t, srv)
	read(t, btc)
	eth := dial(t, srv)
	read(t, eth)

	require.NoError(t, eth.WriteJSON(map[string]any{"type": "change_pair", "data": map[string]string{"pair": "ETHUSDT"}}))
	read(t, eth)
	read(t, eth)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, hub.Pairs())

	hub.Publish("BTCUSDT", entity.Event{Type: entity.TypePriceUpdate, Data: priceentity.Ticker{Symbol: "BTCUSDT", Price: 20500}})
	hub.Publish("ETHUSDT", entity.Event{Type: entity.TypePriceUpdate, Data: priceentity.Ticker{Symbol: "ETHUSDT", Price: 2000}})

	var tk priceentity.Ticker
	require.NoError(t, json.Unmarshal(read(t, btc).Data, &tk))
	assert.Equal(t, "BTCUSDT", tk.Symbol)
	require.NoError(t, json.Unmarshal(read(t, eth).Data, &tk))
	assert.Equal(t, "ETHUSDT", tk.Symbol)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dial(t, srv)
	read(t, conn)
	require.Equal(t, 1, hub.Len())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, hub.Pairs())
}

func TestHub_CloseRejectsNewClients(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dial(t, srv)
	read(t, conn)

	hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "existing clients are disconnected")

	late := dial(t, srv)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err, "new clients are closed right away")
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_SlowConsumerIsDropped(t *testing.T) {
	// no write pump drains this client
	cl := newClient(NewHub(&mockStreamUsecase{}, Config{}), nil, "BTCUSDT", "1h")

	for i := 0; i < sendBuffer; i++ {
		cl.send([]byte(`{}`))
	}
	select {
	case <-cl.done:
		t.Fatal("client dropped before its buffer was full")
	default:
	}

	cl.send([]byte(`{}`))
	select {
	case <-cl.done:
	default:
		t.Fatal("client was not dropped")
	}

	cl.send([]byte(`{}`)) // sending to a dropped client is a no-op
}

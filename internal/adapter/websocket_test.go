package adapter

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/elevator-engine/internal/assigner"
	"github.com/dispatchsim/elevator-engine/internal/domain"
	"github.com/dispatchsim/elevator-engine/internal/engine"
	"github.com/dispatchsim/elevator-engine/internal/factory"
)

func newTestWebSocketServer(t *testing.T) (*WebSocketServer, *domain.FixedClock) {
	t.Helper()
	clock := domain.NewFixedClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	simCfg := domain.SimConfig{NumCars: 1, NumFloors: 5, CarCapacity: 8, SimSpeed: 1, RequestRate: 1}
	eng := engine.New(simCfg, clock, factory.StandardCarFactory{}, assigner.NewHybridPolicy(), 1, nil)
	ws := NewWebSocketServer(0, eng, clock, slog.Default())
	return ws, clock
}

func TestWebSocketServer_StreamsInitialSnapshot(t *testing.T) {
	ws, _ := newTestWebSocketServer(t)
	srv := httptest.NewServer(ws.server.Handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap engine.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, 1, len(snap.Cars))
}

func TestWebSocketServer_ShutdownClosesConnections(t *testing.T) {
	ws, _ := newTestWebSocketServer(t)
	srv := httptest.NewServer(ws.server.Handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap engine.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))

	ws.cancel()
	ws.closeAllConnections()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

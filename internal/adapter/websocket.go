// Package adapter implements the dispatch engine's external interface:
// REST command endpoints plus a WebSocket snapshot stream. The
// WebSocket server uses a connection tracking map, ping/pong keepalive,
// a fixed-interval status ticker, and graceful close-all-connections
// shutdown; on each status tick it sends one engine.Snapshot() to each
// connection, with each connection's writes guarded by a CircuitBreaker.
// Engine events are not streamed.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/engine"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
}

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsStatusInterval = 100 * time.Millisecond
)

// WebSocketServer streams engine snapshots and events to connected
// dashboards.
type WebSocketServer struct {
	engine *engine.Engine
	clock  interface{ Now() time.Time }
	server *http.Server
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	connMutex   sync.RWMutex
	connections map[*websocket.Conn]*connState
}

type connState struct {
	cancel  context.CancelFunc
	breaker *CircuitBreaker
}

// NewWebSocketServer creates a WebSocket-only server bound to port.
func NewWebSocketServer(port int, eng *engine.Engine, clock interface{ Now() time.Time }, logger *slog.Logger) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())
	mux := http.NewServeMux()

	ws := &WebSocketServer{
		engine:      eng,
		clock:       clock,
		logger:      logger.With(slog.String("component", constants.ComponentWebSocket)),
		ctx:         ctx,
		cancel:      cancel,
		connections: make(map[*websocket.Conn]*connState),
	}

	mux.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Header().Set("Access-Control-Allow-Headers", "Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version")
		ws.streamHandler(w, r)
	})

	ws.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return ws
}

func (ws *WebSocketServer) addConnection(conn *websocket.Conn, st *connState) {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()
	ws.connections[conn] = st
}

func (ws *WebSocketServer) removeConnection(conn *websocket.Conn) {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()
	if st, ok := ws.connections[conn]; ok {
		st.cancel()
		delete(ws.connections, conn)
	}
}

func (ws *WebSocketServer) closeAllConnections() {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()

	for conn, st := range ws.connections {
		if err := conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutdown"),
			time.Now().Add(time.Second)); err != nil {
			ws.logger.Error("failed to send close message", slog.String("error", err.Error()))
		}
		st.cancel()
		if err := conn.Close(); err != nil {
			ws.logger.Error("failed to close websocket connection", slog.String("error", err.Error()))
		}
	}
	ws.connections = make(map[*websocket.Conn]*connState)
}

func (ws *WebSocketServer) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ws.ctx)
	st := &connState{cancel: cancel, breaker: NewCircuitBreaker(5, 10*time.Second, 2)}
	ws.addConnection(conn, st)
	defer ws.removeConnection(conn)

	ws.logger.Info("websocket connection established")

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	if err := ws.writeSnapshot(ctx, conn, st.breaker); err != nil {
		ws.logger.Error("failed to send initial snapshot", slog.String("error", err.Error()))
		return
	}

	statusTicker := time.NewTicker(wsStatusInterval)
	defer statusTicker.Stop()
	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutdown"),
				time.Now().Add(wsWriteWait))
			return
		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-statusTicker.C:
			if err := ws.writeSnapshot(ctx, conn, st.breaker); err != nil {
				if st.breaker.GetState() == StateOpen {
					ws.logger.Warn("client write circuit open, dropping connection")
					return
				}
			}
		}
	}
}

func (ws *WebSocketServer) writeSnapshot(ctx context.Context, conn *websocket.Conn, breaker *CircuitBreaker) error {
	snap := ws.engine.Snapshot(ws.clock.Now())
	return breaker.Execute(ctx, func() error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(snap)
	})
}

// Start serves the WebSocket endpoint until Shutdown is called.
func (ws *WebSocketServer) Start() error {
	ws.logger.Info("starting websocket server", slog.String("addr", ws.server.Addr))
	return ws.server.ListenAndServe()
}

// Shutdown gracefully closes every connection and the listener.
func (ws *WebSocketServer) Shutdown(ctx context.Context) error {
	ws.cancel()
	ws.closeAllConnections()
	return ws.server.Shutdown(ctx)
}

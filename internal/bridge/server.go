package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/logging"
	"github.com/muurk/dialscan/internal/ssdp"
)

const (
	// DefaultAddr is the default listen address
	DefaultAddr = "127.0.0.1:8765"

	// WebSocketPath is where clients connect
	WebSocketPath = "/ws"

	// StatusPath serves the engine status as JSON
	StatusPath = "/status"

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Per-client outbound queue length
	sendBuffer = 64

	// How long Close waits for the active session to stop
	shutdownWait = 5 * time.Second
)

// Config holds the bridge configuration
type Config struct {
	Addr              string
	DefaultTimeout    time.Duration // used when startDiscovery omits discoveryTimeout
	DefaultTargetPort int           // used when startDiscovery omits targetPort
}

// Server exposes an ssdp.Engine over WebSocket. It is the engine's sink:
// every session event is broadcast to all connected clients, whichever
// client started the session.
type Server struct {
	engine   *ssdp.Engine
	config   Config
	hub      *hub
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	addr net.Addr
}

// New creates a bridge for engine
func New(engine *ssdp.Engine, config Config) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = ssdp.DefaultTimeout
	}
	if config.DefaultTargetPort == 0 {
		config.DefaultTargetPort = ssdp.AnyPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		engine: engine,
		config: config,
		hub:    newHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the HTTP handler serving the WebSocket and status endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	mux.HandleFunc(StatusPath, s.handleStatus)
	return mux
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on an existing listener until ctx is done
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: writeWait,
	}

	logging.Info("Bridge listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", WebSocketPath),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutting down bridge...")
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Bridge shutdown timeout, forcing close", zap.Error(err))
			_ = httpServer.Close()
		}
		return nil
	case err := <-errChan:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the listen address once serving, or nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close stops any active session and disconnects all clients
func (s *Server) Close() {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := s.engine.StopAndWait(ctx); err != nil {
		logging.Warn("Discovery session did not stop in time", zap.Error(err))
	}

	s.hub.closeAll()
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	return s.hub.count()
}

// DeviceFound implements ssdp.Sink
func (s *Server) DeviceFound(location string) {
	s.hub.broadcast(Event{Event: EventResponse, Data: location})
}

// DiscoveryError implements ssdp.Sink
func (s *Server) DiscoveryError(message string) {
	s.hub.broadcast(Event{Event: EventError, Data: message})
}

// DiscoveryStopped implements ssdp.Sink
func (s *Server) DiscoveryStopped() {
	s.hub.broadcast(Event{Event: EventStopped, Data: StoppedMessage})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{Clients: s.hub.count()}
	if session := s.engine.Current(); session != nil {
		status.Running = true
		status.Session = session.ID()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Error("Failed to write status", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	c := &client{
		id:         uuid.NewString(),
		remoteAddr: r.RemoteAddr,
		send:       make(chan []byte, sendBuffer),
	}
	s.hub.register(c)

	go s.writePump(conn, c)
	s.readPump(conn, c)
}

// readPump reads commands until the connection fails
func (s *Server) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		s.hub.unregister(c)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Bridge connection closed with error",
					zap.String("client_id", c.id),
					zap.Error(err))
			}
			return
		}
		s.hub.unicast(c, s.handleCommand(data))
	}
}

// writePump owns all writes to the connection
func (s *Server) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleCommand executes one client command and returns its reply
func (s *Server) handleCommand(data []byte) Reply {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Reply{Error: fmt.Sprintf("invalid command: %v", err)}
	}

	logging.Debug("Bridge command received",
		zap.String("method", cmd.Method),
		zap.String("id", cmd.ID))

	reply := Reply{ID: cmd.ID, Method: cmd.Method}
	switch cmd.Method {
	case MethodStartDiscovery:
		timeoutMs, port := cmd.Options.resolve(s.config.DefaultTimeout, s.config.DefaultTargetPort)
		session, started := s.engine.Start(s.ctx, s, time.Duration(timeoutMs)*time.Millisecond, port)
		reply.Session = session.ID()
		if !started {
			reply.Error = "discovery already running"
			return reply
		}
		reply.Result = startedMessage(timeoutMs, port)

	case MethodStopDiscovery:
		if session := s.engine.Current(); session != nil {
			reply.Session = session.ID()
		}
		s.engine.Stop()
		reply.Result = "Discovery stop requested"

	default:
		reply.Error = fmt.Sprintf("unknown method %q", cmd.Method)
	}
	return reply
}

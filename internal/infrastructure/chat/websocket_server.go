package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/internal/core/services"
	"communityhub/pkg/tracing"
)

// Config holds websocket transport settings
type Config struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	MaxMessageSize int64
	MaxConnections int // 0 means unlimited
	AllowedOrigins []string
}

func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendBuffer:     64,
		MaxMessageSize: 64 << 10,
	}
}

// inboundFrame is a client to server frame
type inboundFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// Ack answers every inbound frame
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WebSocketServer carries chat events between browsers and the chat service
type WebSocketServer struct {
	chat     *services.ChatService
	cfg      Config
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger

	active  atomic.Int64
	mu      sync.Mutex
	clients map[string]*client
}

func NewWebSocketServer(chat *services.ChatService, cfg Config, logger *zap.SugaredLogger) *WebSocketServer {
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	s := &WebSocketServer{
		chat:    chat,
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades the request and serves one chat client until it
// disconnects
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// the slot is taken before the upgrade and given back on every exit
	n := s.active.Add(1)
	defer s.active.Add(-1)
	if max := s.cfg.MaxConnections; max > 0 && n > int64(max) {
		s.logger.Warnw("Rejecting chat connection, limit reached", "limit", max, "remote_addr", r.RemoteAddr)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("Chat websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	c := &client{
		id:      uuid.New().String(),
		conn:    conn,
		send:    make(chan ports.ChatEvent, s.cfg.SendBuffer),
		quit:    make(chan struct{}),
		limiter: s.chat.NewConnection(),
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(c)
	}()

	ctx := context.Background()
	if err := s.chat.Join(ctx, c); err != nil {
		s.logger.Warnw("Chat client could not join", "connection_id", c.id, "error", err)
	} else {
		s.logger.Infow("Chat client connected", "connection_id", c.id, "remote_addr", r.RemoteAddr)
		s.readPump(ctx, c)
	}

	s.chat.Leave(c.id)
	c.close()
	<-writerDone
	_ = conn.Close()

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	s.logger.Infow("Chat client disconnected", "connection_id", c.id)
}

func (s *WebSocketServer) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Infow("Chat read failed", "connection_id", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))

		if !c.Deliver(s.handleFrame(ctx, c, raw)) {
			return
		}
	}
}

func (s *WebSocketServer) handleFrame(ctx context.Context, c *client, raw []byte) ports.ChatEvent {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return ackEvent("", errors.New("malformed frame"))
	}

	ctx, span := tracing.TraceChatFrame(ctx, frame.Event, c.id)
	defer span.End()

	if frame.Event != ports.EventSend {
		return ackEvent(frame.ID, errors.New("unknown event"))
	}

	var req domain.SendRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return ackEvent(frame.ID, errors.New("malformed message"))
		}
	}

	msg, err := s.chat.Send(ctx, c.limiter, req)
	if err != nil {
		if !errors.Is(err, domain.ErrRateLimited) {
			tracing.RecordError(ctx, err)
		}
		s.logger.Debugw("Chat message rejected", "connection_id", c.id, "error", err)
		return ackEvent(frame.ID, err)
	}
	span.SetAttributes(tracing.MessageTypeKey.String(string(msg.Type)))
	s.logger.Debugw("Chat message accepted", "connection_id", c.id, "message_id", msg.ID, "type", msg.Type)
	return ackEvent(frame.ID, nil)
}

func ackEvent(id string, err error) ports.ChatEvent {
	ack := Ack{OK: err == nil}
	if err != nil {
		ack.Error = ackError(err)
	}
	return ports.ChatEvent{Event: ports.EventAck, ID: id, Data: ack}
}

func ackError(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrStorage):
		return "storage_unavailable"
	default:
		return err.Error()
	}
}

func (s *WebSocketServer) writePump(c *client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				s.logger.Infow("Chat write failed", "connection_id", c.id, "error", err)
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-c.quit:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.cfg.WriteTimeout))
			// unblock readPump
			_ = c.conn.Close()
			return
		}
	}
}

// ActiveConnections returns the number of open websocket connections
func (s *WebSocketServer) ActiveConnections() int {
	return int(s.active.Load())
}

// Close disconnects every client
func (s *WebSocketServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.close()
	}
}

// client is one websocket connection. The chat service delivers into send;
// only writePump writes to the socket.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan ports.ChatEvent
	quit    chan struct{}
	once    sync.Once
	limiter *services.ChatConnection
}

var _ ports.Viewer = (*client)(nil)

func (c *client) ID() string { return c.id }

func (c *client) Deliver(event ports.ChatEvent) bool {
	select {
	case <-c.quit:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		c.close()
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.quit) })
}

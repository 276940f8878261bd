package realtime

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 << 10 // 64 KiB
	defaultSendBuffer     = 64
)

// SocketConfig tunes the websocket transport.
type SocketConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	// AllowedOrigins lists browser origins permitted to connect. Same-host and
	// loopback origins are always accepted; "*" accepts any origin.
	AllowedOrigins []string
}

func (c SocketConfig) withDefaults() SocketConfig {
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	return c
}

func (c SocketConfig) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Server upgrades HTTP requests to websocket connections attached to a Hub.
type Server struct {
	hub      *Hub
	cfg      SocketConfig
	upgrader websocket.Upgrader
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewServer constructs a websocket server for the hub.
func NewServer(hub *Hub, cfg SocketConfig) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		hub: hub,
		cfg: cfg,
		log: hub.log.With(zap.String("component", "socket")),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return s
}

// Serve upgrades the request and runs the connection until it closes. An
// empty userID yields an anonymous connection.
func (s *Server) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	conn := newSocketConn(uuid.NewString(), strings.TrimSpace(userID), socket, s.cfg)
	if s.hub.Connect(conn) == StateClosed {
		conn.Close()
		_ = socket.Close()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		conn.writeLoop(s.log)
	}()
	conn.readLoop(s.hub, s.log)
}

// Wait blocks until every connection writer has exited or the timeout passes.
func (s *Server) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

type socketConn struct {
	id     string
	userID string
	socket *websocket.Conn
	cfg    SocketConfig
	send   chan Event
	done   chan struct{}
	once   sync.Once
}

func newSocketConn(id, userID string, socket *websocket.Conn, cfg SocketConfig) *socketConn {
	return &socketConn{
		id:     id,
		userID: userID,
		socket: socket,
		cfg:    cfg,
		send:   make(chan Event, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *socketConn) ID() string     { return c.id }
func (c *socketConn) UserID() string { return c.userID }

func (c *socketConn) Send(event Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close signals the writer to send a close frame and tear the socket down.
func (c *socketConn) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *socketConn) readLoop(hub *Hub, log *zap.Logger) {
	defer func() {
		hub.Disconnect(c)
		c.Close()
	}()

	c.socket.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Debug("unexpected close", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		if len(raw) == 0 {
			continue
		}

		frame, err := decodeFrame(raw)
		if err != nil {
			log.Debug("ignoring frame", zap.String("conn_id", c.id), zap.Error(err))
			continue
		}

		switch frame.Event {
		case EventJoinRoom:
			room, err := decodeRoomID(frame.Data)
			if err != nil {
				log.Debug("ignoring join_room", zap.String("conn_id", c.id), zap.Error(err))
				continue
			}
			hub.Join(c, room)
		case EventSendMessage:
			payload, err := decodePayload(frame.Data)
			if err != nil {
				log.Debug("ignoring send_message", zap.String("conn_id", c.id), zap.Error(err))
				continue
			}
			hub.Publish(c, payload)
		default:
			log.Debug("unsupported event", zap.String("conn_id", c.id), zap.String("event", frame.Event))
		}
	}
}

func (c *socketConn) writeLoop(log *zap.Logger) {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.socket.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.socket.WriteJSON(event); err != nil {
				log.Debug("write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.flush()
			_ = c.socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

// flush writes events that were queued before the connection was closed.
func (c *socketConn) flush() {
	for {
		select {
		case event := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		default:
			return
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	permitted := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, origin := range allowed {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		switch origin {
		case "":
		case "*":
			wildcard = true
		default:
			permitted[origin] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		if _, ok := permitted[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
			return true
		}
		originHost := hostWithoutPort(origin)
		return strings.EqualFold(originHost, hostWithoutPort(r.Host)) || isLoopback(originHost)
	}
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		if parsed, err := url.Parse(host); err == nil {
			return hostWithoutPort(parsed.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

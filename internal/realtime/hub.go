package realtime

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/chatrelay/pkg/logger"
	"github.com/charlesng35/chatrelay/pkg/metrics"
)

// Conn is a live bidirectional channel to one client, owned by the transport.
type Conn interface {
	// ID returns the server-assigned connection identifier.
	ID() string
	// UserID returns the identity presented at connect time, or "".
	UserID() string
	// Send enqueues an event without blocking and reports whether it was accepted.
	Send(Event) bool
	// Close force-disconnects the client. It must be safe to call repeatedly
	// and must not call back into the Hub synchronously.
	Close()
}

// State is the lifecycle state of a connection.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateAnonymous
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "closed"
	}
}

// Observer receives hub lifecycle notifications. Callbacks run while the hub
// lock is held and must not block or call back into the hub.
type Observer interface {
	UserOnline(userID, connID string)
	UserOffline(userID, connID string)
	MessageRelayed(senderUserID string, msg ChatMessage)
}

type session struct {
	conn  Conn
	state State
}

// Hub is the connection lifecycle manager.
type Hub struct {
	mu            sync.Mutex
	registry      *Registry
	rooms         *Rooms
	relay         *Relay
	sessions      map[string]*session
	observers     []Observer
	enforceAuthor bool
	closed        bool
	log           *zap.Logger
}

// Option customises a Hub.
type Option func(*Hub)

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

// WithEnforcedAuthor makes the hub overwrite the author field of messages
// sent by authenticated connections with their registered identity.
func WithEnforcedAuthor(enabled bool) Option {
	return func(h *Hub) {
		h.enforceAuthor = enabled
	}
}

// WithLogger overrides the hub logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHub constructs an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		rooms:    NewRooms(),
		sessions: make(map[string]*session),
		log:      logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.relay = NewRelay(h.rooms, h.resolveLocked, h.log)
	return h
}

// Connect admits a new connection. A connection presenting a user identity is
// registered, evicting any connection previously bound to that identity, and
// receives a socket_id event; otherwise it stays anonymous. A closed hub
// admits nothing and reports StateClosed.
func (h *Hub) Connect(conn Conn) State {
	if conn == nil || conn.ID() == "" {
		return StateClosed
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return StateClosed
	}

	if existing, ok := h.sessions[conn.ID()]; ok {
		return existing.state
	}

	sess := &session{conn: conn, state: StateConnecting}
	h.sessions[conn.ID()] = sess
	metrics.ActiveConnections.Inc()

	userID := strings.TrimSpace(conn.UserID())
	if userID == "" {
		sess.state = StateAnonymous
		metrics.Connections.WithLabelValues("anonymous").Inc()
		h.log.Debug("anonymous connection", zap.String("conn_id", conn.ID()))
		return sess.state
	}

	if evictedID, replaced := h.registry.Register(userID, conn.ID()); replaced {
		h.evictLocked(userID, evictedID)
	}
	sess.state = StateAuthenticated
	metrics.Connections.WithLabelValues("authenticated").Inc()
	metrics.RegisteredUsers.Set(float64(h.registry.Len()))

	for _, o := range h.observers {
		o.UserOnline(userID, conn.ID())
	}

	conn.Send(Event{Name: EventSocketID, Data: conn.ID()})
	h.log.Info("user connected", zap.String("user_id", userID), zap.String("conn_id", conn.ID()))
	return sess.state
}

// Join subscribes the connection to a room. It reports whether a new
// membership was created; joining twice is a no-op.
func (h *Hub) Join(conn Conn, roomID string) bool {
	if conn == nil || roomID == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[conn.ID()]; !ok {
		return false
	}
	if !h.rooms.Join(conn.ID(), roomID) {
		return false
	}

	metrics.RoomJoins.Inc()
	h.log.Debug("joined room", zap.String("conn_id", conn.ID()), zap.String("room", roomID))
	return true
}

// Publish relays a send_message payload from conn to the other members of
// the payload's room and returns the number of recipients. A payload without
// a room, or one sent by a connection the hub does not know, delivers nothing.
func (h *Hub) Publish(conn Conn, payload Payload) int {
	if conn == nil || payload == nil {
		return 0
	}

	room, err := payload.Room()
	if err != nil {
		h.log.Debug("ignoring message", zap.String("conn_id", conn.ID()), zap.Error(err))
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[conn.ID()]
	if !ok {
		return 0
	}

	var senderUserID string
	if sess.state == StateAuthenticated {
		senderUserID = strings.TrimSpace(conn.UserID())
		if h.enforceAuthor {
			payload = payload.Clone()
			payload["author"] = senderUserID
		}
	}

	delivered, _ := h.relay.Relay(conn.ID(), room, payload)
	metrics.RelayedMessages.Inc()

	if len(h.observers) > 0 {
		if msg, err := payload.Decode(); err == nil {
			for _, o := range h.observers {
				o.MessageRelayed(senderUserID, msg)
			}
		}
	}

	return delivered
}

// Disconnect moves the connection to Closed: its identity is unregistered if
// still bound to it and it is purged from every room. Repeated calls are no-ops.
func (h *Hub) Disconnect(conn Conn) {
	if conn == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cleanupLocked(conn.ID())
}

// Lookup reports the connection currently bound to userID.
func (h *Hub) Lookup(userID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.registry.Lookup(userID)
}

// DeliverToUser sends an event directly to the connection bound to userID.
func (h *Hub) DeliverToUser(userID string, event Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	connID, ok := h.registry.Lookup(userID)
	if !ok {
		return false
	}
	conn, ok := h.resolveLocked(connID)
	if !ok {
		return false
	}
	return conn.Send(event)
}

// State reports the lifecycle state of a connection id. Unknown ids are Closed.
func (h *Hub) State(connID string) State {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sess, ok := h.sessions[connID]; ok {
		return sess.state
	}
	return StateClosed
}

// Members returns the connection ids joined to roomID.
func (h *Hub) Members(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.rooms.Members(roomID)
}

// RoomsOf returns the rooms connID has joined.
func (h *Hub) RoomsOf(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.rooms.RoomsOf(connID)
}

// Presence returns a copy of the user -> connection bindings.
func (h *Hub) Presence() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.registry.Snapshot()
}

// Stats summarises the hub for health reporting.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}

// Stats returns current counts.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Stats{
		Connections: len(h.sessions),
		Users:       h.registry.Len(),
		Rooms:       h.rooms.Count(),
	}
}

// ActiveConnections returns the number of live connections.
func (h *Hub) ActiveConnections() int64 {
	return int64(h.Stats().Connections)
}

// Close force-disconnects every connection and resets all state. Later
// Connect calls are refused. Closing twice is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for connID, sess := range h.sessions {
		h.cleanupLocked(connID)
		sess.conn.Close()
	}

	h.registry.Reset()
	h.rooms.Reset()
	metrics.ActiveConnections.Set(0)
	metrics.RegisteredUsers.Set(0)
	h.log.Info("realtime hub closed")
}

// evictLocked closes the connection superseded by a newer session for userID
// and clears its state immediately, so no relay reaches it afterwards.
func (h *Hub) evictLocked(userID, connID string) {
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}

	h.cleanupLocked(connID)
	sess.conn.Close()
	metrics.Evictions.Inc()
	h.log.Info("evicted previous session",
		zap.String("user_id", userID),
		zap.String("conn_id", connID),
	)
}

func (h *Hub) cleanupLocked(connID string) {
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}

	if sess.state == StateAuthenticated {
		userID := strings.TrimSpace(sess.conn.UserID())
		if h.registry.Unregister(userID, connID) {
			for _, o := range h.observers {
				o.UserOffline(userID, connID)
			}
			h.log.Info("user disconnected", zap.String("user_id", userID), zap.String("conn_id", connID))
		}
	}

	h.rooms.Purge(connID)
	sess.state = StateClosed
	delete(h.sessions, connID)

	metrics.ActiveConnections.Dec()
	metrics.RegisteredUsers.Set(float64(h.registry.Len()))
}

func (h *Hub) resolveLocked(connID string) (Conn, bool) {
	sess, ok := h.sessions[connID]
	if !ok || sess.state == StateClosed {
		return nil, false
	}
	return sess.conn, true
}

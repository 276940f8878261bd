// Package presence mirrors the realtime connection registry into a shared
// cache store so other processes can ask whether a user is online.
package presence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/chatrelay/internal/cache"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/pkg/logger"
	"github.com/charlesng35/chatrelay/pkg/metrics"
)

const (
	keyPrefix       = "presence:"
	defaultTTL      = 2 * time.Minute
	defaultQueueLen = 256
	opTimeout       = 5 * time.Second
)

// Source exposes the authoritative user -> connection bindings.
type Source interface {
	Presence() map[string]string
	Lookup(userID string) (string, bool)
}

type opKind int

const (
	opOnline opKind = iota
	opOffline
)

type update struct {
	kind   opKind
	userID string
	connID string
}

// Mirror is a realtime.Observer that copies registry changes into a cache
// store. Updates are queued and applied by a single worker goroutine.
type Mirror struct {
	store cache.Store
	ttl   time.Duration
	log   *zap.Logger

	// writeMu orders store writes between the worker and Refresh.
	writeMu sync.Mutex

	mu      sync.RWMutex
	closed  bool
	updates chan update
	done    chan struct{}
}

var _ realtime.Observer = (*Mirror)(nil)

// Key returns the cache key holding the presence entry for userID.
func Key(userID string) string {
	return keyPrefix + strings.TrimSpace(userID)
}

// NewMirror starts a mirror writing entries with the given ttl. queueLen bounds
// the number of pending updates.
func NewMirror(store cache.Store, ttl time.Duration, queueLen int) (*Mirror, error) {
	if store == nil {
		return nil, errors.New("presence: cache store is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if queueLen <= 0 {
		queueLen = defaultQueueLen
	}

	m := &Mirror{
		store:   store,
		ttl:     ttl,
		log:     logger.WithModule("presence"),
		updates: make(chan update, queueLen),
		done:    make(chan struct{}),
	}
	go m.loop()
	return m, nil
}

// UserOnline records userID as bound to connID.
func (m *Mirror) UserOnline(userID, connID string) {
	m.enqueue(update{kind: opOnline, userID: userID, connID: connID})
}

// UserOffline removes the entry for userID if it still names connID.
func (m *Mirror) UserOffline(userID, connID string) {
	m.enqueue(update{kind: opOffline, userID: userID, connID: connID})
}

// MessageRelayed is ignored by the mirror.
func (m *Mirror) MessageRelayed(string, realtime.ChatMessage) {}

// Lookup returns the mirrored connection id for userID.
func (m *Mirror) Lookup(ctx context.Context, userID string) (string, bool, error) {
	value, ok, err := m.store.Get(ctx, Key(userID))
	if err != nil || !ok {
		return "", false, err
	}
	return string(value), true, nil
}

// Refresh rewrites every binding reported by src, extending its TTL. Each
// user is looked up again right before the write, so a user who went offline
// after the snapshot is not written back.
func (m *Mirror) Refresh(ctx context.Context, src Source) (int, error) {
	if src == nil {
		return 0, nil
	}

	var errs error
	refreshed := 0
	for userID := range src.Presence() {
		ok, err := m.refreshUser(ctx, src, userID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			refreshed++
		}
	}
	return refreshed, errs
}

func (m *Mirror) refreshUser(ctx context.Context, src Source, userID string) (bool, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	connID, ok := src.Lookup(userID)
	if !ok {
		return false, nil
	}
	if err := m.store.Set(ctx, Key(userID), []byte(connID), m.ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops accepting updates and waits for queued ones to be applied.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	close(m.updates)
	m.mu.Unlock()

	<-m.done
}

func (m *Mirror) enqueue(u update) {
	if strings.TrimSpace(u.userID) == "" {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.updates <- u:
	default:
		metrics.PresenceQueueDrops.Inc()
		m.log.Warn("presence queue full, dropping update", zap.String("user_id", u.userID))
	}
}

func (m *Mirror) loop() {
	defer close(m.done)
	for u := range m.updates {
		if err := m.apply(u); err != nil {
			m.log.Warn("presence update failed",
				zap.String("user_id", u.userID),
				zap.String("conn_id", u.connID),
				zap.Error(err),
			)
		}
	}
}

func (m *Mirror) apply(u update) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	key := Key(u.userID)
	switch u.kind {
	case opOnline:
		return m.store.Set(ctx, key, []byte(u.connID), m.ttl)
	case opOffline:
		current, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok || string(current) != u.connID {
			return nil
		}
		return m.store.Delete(ctx, key)
	default:
		return nil
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/pkg/logger"
	"github.com/charlesng35/chatrelay/pkg/metrics"
)

const (
	defaultArchiveBuffer = 1024
	archiveWriteTimeout  = 5 * time.Second
)

type archiveRecord struct {
	senderUserID string
	msg          realtime.ChatMessage
}

// Archiver is a realtime.Observer that persists relayed messages through a
// MessageService. Messages are buffered and written by one worker goroutine;
// when the buffer is full new messages are dropped.
type Archiver struct {
	messages *MessageService
	log      *zap.Logger

	mu      sync.RWMutex
	closed  bool
	records chan archiveRecord
	done    chan struct{}
}

var _ realtime.Observer = (*Archiver)(nil)

// NewArchiver starts an archiver with room for buffer pending messages.
func NewArchiver(messages *MessageService, buffer int) (*Archiver, error) {
	if messages == nil {
		return nil, errors.New("archiver: message service is required")
	}
	if buffer <= 0 {
		buffer = defaultArchiveBuffer
	}

	a := &Archiver{
		messages: messages,
		log:      logger.WithModule("archive"),
		records:  make(chan archiveRecord, buffer),
		done:     make(chan struct{}),
	}
	go a.loop()
	return a, nil
}

// UserOnline is ignored by the archiver.
func (a *Archiver) UserOnline(string, string) {}

// UserOffline is ignored by the archiver.
func (a *Archiver) UserOffline(string, string) {}

// MessageRelayed queues msg for storage without blocking.
func (a *Archiver) MessageRelayed(senderUserID string, msg realtime.ChatMessage) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.records <- archiveRecord{senderUserID: senderUserID, msg: msg}:
	default:
		metrics.ArchiveQueueDrops.Inc()
		a.log.Warn("archive queue full, dropping message", zap.String("room", msg.Room))
	}
}

// Close stops accepting messages and waits until queued ones are written.
func (a *Archiver) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.records)
	}
	a.mu.Unlock()

	<-a.done
}

func (a *Archiver) loop() {
	defer close(a.done)
	for record := range a.records {
		ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
		if _, err := a.messages.Archive(ctx, record.senderUserID, record.msg); err != nil {
			a.log.Warn("failed to archive message", zap.String("room", record.msg.Room), zap.Error(err))
		}
		cancel()
	}
}

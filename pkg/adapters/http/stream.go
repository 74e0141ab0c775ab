package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/domain"
)

// StreamManager fans document events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // document id -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for a document. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(id string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of a document without blocking.
func (sm *StreamManager) Broadcast(id string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "document_id", id)
		}
	}
}

// Publish encodes a document event and broadcasts it. It matches the
// session.WithEvents callback.
func (sm *StreamManager) Publish(id string, e domain.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		sm.logger.Error("SSE: failed to encode event", "document_id", id, "err", err)
		return
	}
	sm.Broadcast(id, string(data))
}

package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observer"
	"github.com/aretw0/bugjar/pkg/ports"
)

// subscriberBuffer is how far a slow SSE client may fall behind before
// messages are dropped for it.
const subscriberBuffer = 64

// Message is one encoded notification.
type Message struct {
	Kind domain.NotificationKind
	Data []byte
}

// StreamManager fans notifications out to SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan Message]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan Message]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a client. The returned func unregisters it and closes
// the channel.
func (sm *StreamManager) Subscribe() (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, subscriberBuffer)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Subscribers reports how many clients are connected.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast never blocks the caller, which is usually the event loop.
func (sm *StreamManager) Broadcast(n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		sm.logger.Warn("SSE: notification not encodable", "kind", n.Kind, "err", err)
		return
	}
	msg := Message{Kind: n.Kind, Data: data}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "kind", n.Kind)
		}
	}
}

// Observer adapts Broadcast to ports.Observer.
func (sm *StreamManager) Observer() ports.Observer {
	return observer.Func(sm.Broadcast)
}

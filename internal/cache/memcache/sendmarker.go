// Package memcache holds process-local stand-ins for the Redis backed caches.
package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/notification"
)

const sentTTL = 48 * time.Hour

type entry struct {
	messageID string
	sent      bool
	expiresAt time.Time
}

// SendMarker mirrors rediscache.SendMarker for a single instance.
type SendMarker struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewSendMarker(ttl time.Duration) *SendMarker {
	return &SendMarker{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (m *SendMarker) Acquire(_ context.Context, key string) (notification.MarkerState, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		if e.sent {
			return notification.MarkerSent, e.messageID, nil
		}
		return notification.MarkerPending, "", nil
	}
	m.entries[key] = entry{expiresAt: now.Add(m.ttl)}
	return notification.MarkerAcquired, "", nil
}

func (m *SendMarker) Confirm(_ context.Context, key, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{messageID: messageID, sent: true, expiresAt: m.now().Add(sentTTL)}
	return nil
}

func (m *SendMarker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

package ingestion

import (
	"sync"

	domainLog "device-fleet-manager/internal/domain/devicelog"
)

const subscriberBuffer = 64

// Hub fans stored logs out to live subscribers keyed by MAC address. Slow
// subscribers miss entries rather than block ingestion.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan *domainLog.Log
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan *domainLog.Log)}
}

// Subscribe returns a channel of logs for macID and a function that closes it.
func (h *Hub) Subscribe(macID string) (<-chan *domainLog.Log, func()) {
	ch := make(chan *domainLog.Log, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[macID] == nil {
		h.subs[macID] = make(map[int]chan *domainLog.Log)
	}
	h.subs[macID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[macID], id)
			if len(h.subs[macID]) == 0 {
				delete(h.subs, macID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast delivers entry to every subscriber of its MAC. It returns the
// number of subscribers that received it.
func (h *Hub) Broadcast(entry *domainLog.Log) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, ch := range h.subs[entry.MacID] {
		select {
		case ch <- entry:
			sent++
		default:
		}
	}
	return sent
}

// Subscribers returns the number of open subscriptions for macID.
func (h *Hub) Subscribers(macID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[macID])
}

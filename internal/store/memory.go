package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryOrders is a bounded, TTL-evicting OrderStore living in process memory.
// Pending orders are lost on restart.
type MemoryOrders struct {
	// mu makes Take atomic; the LRU is locked internally for everything else.
	mu  sync.Mutex
	lru *expirable.LRU[string, Intent]
}

// NewMemoryOrders returns a store holding at most capacity intents, each for
// at most ttl. When full, the least recently used intent is evicted.
func NewMemoryOrders(capacity int, ttl time.Duration) *MemoryOrders {
	return &MemoryOrders{
		lru: expirable.NewLRU[string, Intent](capacity, nil, ttl),
	}
}

func (m *MemoryOrders) Put(_ context.Context, id string, intent Intent) error {
	m.lru.Add(id, intent)
	return nil
}

func (m *MemoryOrders) Take(_ context.Context, id string) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.lru.Get(id)
	if !ok {
		return Intent{}, ErrOrderNotFound
	}
	m.lru.Remove(id)
	return intent, nil
}

func (m *MemoryOrders) Delete(_ context.Context, id string) error {
	m.lru.Remove(id)
	return nil
}

// Len reports how many unexpired intents are held.
func (m *MemoryOrders) Len() int {
	return m.lru.Len()
}

// MemoryLedger is an EventLedger that remembers at most capacity event ids for ttl.
type MemoryLedger struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, string]
}

// NewMemoryLedger returns an in-process ledger.
func NewMemoryLedger(capacity int, ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		lru: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (l *MemoryLedger) Record(_ context.Context, eventID, eventType string, _ json.RawMessage) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lru.Contains(eventID) {
		return false, nil
	}
	l.lru.Add(eventID, eventType)
	return true, nil
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count  int64
	value  string
	expiry time.Time
}

// expired entries are swept opportunistically every pruneEvery mutations, so a
// churn of distinct identities in degraded mode cannot grow the map unbounded
const pruneEvery = 256

// MemoryCounterStore implements CounterStore with a process-local map. It keeps
// the same window and expiry semantics as the redis store but loses
// cross-process coordination. Used standalone in tests and as the degraded-mode
// fallback behind FallbackCounterStore.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
	ops     int
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests only)
func (m *MemoryCounterStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybePrune()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok || now.After(entry.expiry) {
		entry = &memoryEntry{expiry: now.Add(window)}
		m.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

func (m *MemoryCounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || m.now().After(entry.expiry) {
		delete(m.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryCounterStore) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybePrune()

	m.entries[key] = &memoryEntry{value: value, expiry: m.now().Add(ttl)}
	return nil
}

// maybePrune drops expired entries once per pruneEvery mutations. Caller holds mu.
func (m *MemoryCounterStore) maybePrune() {
	m.ops++
	if m.ops < pruneEvery {
		return
	}
	m.ops = 0

	now := m.now()
	for key, entry := range m.entries {
		if now.After(entry.expiry) {
			delete(m.entries, key)
		}
	}
}

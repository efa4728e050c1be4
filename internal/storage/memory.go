package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKV is an in-process KV used for local development and tests.
// Expired keys are dropped lazily on access.
type MemoryKV struct {
	mu      sync.Mutex
	values  map[string]memoryEntry
	sets    map[string]map[string]struct{}
	nowFunc func() time.Time
}

// Ensure MemoryKV implements KV
var _ KV = (*MemoryKV)(nil)

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		values:  make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
		nowFunc: time.Now,
	}
}

// SetClock overrides the clock used for expiry
func (m *MemoryKV) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowFunc = now
}

// TTL returns the remaining lifetime of key, or 0 if it has none
func (m *MemoryKV) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok || entry.expiresAt.IsZero() {
		return 0
	}
	return entry.expiresAt.Sub(m.nowFunc())
}

// Keys returns all live value keys, sorted
func (m *MemoryKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key := range m.values {
		if _, ok := m.lookup(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// lookup must be called with mu held
func (m *MemoryKV) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.values[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !m.nowFunc().Before(entry.expiresAt) {
		delete(m.values, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.nowFunc().Add(ttl)
	}
	m.values[key] = entry
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.lookup(key)
	delete(m.values, key)
	if _, isSet := m.sets[key]; isSet {
		delete(m.sets, key)
		ok = true
	}
	return ok, nil
}

func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(key); ok {
		return true, nil
	}
	_, ok := m.sets[key]
	return ok, nil
}

func (m *MemoryKV) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(members) == 0 {
		return nil
	}
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MemoryKV) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	// Redis drops empty sets
	if len(set) == 0 {
		delete(m.sets, key)
	}
	return nil
}

func (m *MemoryKV) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.sets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryKV) SCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.sets[key])), nil
}

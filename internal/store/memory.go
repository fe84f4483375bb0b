package store

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

type memoryEntry struct {
	state     []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are held encoded so
// callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	opts    options
}

// NewMemory creates an in-process store.
func NewMemory(opts ...Option) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		opts:    buildOptions(opts),
	}
}

// Get returns the session or nil. An expired entry is evicted on read.
func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	if ok && !m.opts.clock().Before(entry.expiresAt) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return decodeSession(entry.state)
}

// Set stores the session and resets its TTL.
func (m *MemoryStore) Set(_ context.Context, s *domain.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{state: data, expiresAt: m.opts.clock().Add(m.opts.ttl)}
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// PurgeExpired evicts all expired entries.
func (m *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.clock()
	var n int64
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of entries held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

var _ SessionStore = (*MemoryStore)(nil)

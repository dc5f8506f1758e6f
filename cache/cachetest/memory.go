// Package cachetest provides an in-memory cache backend for tests.
package cachetest

import (
	"context"
	"sync"
	"time"

	"github.com/CUknot/chat_backend/cache"
)

// MemoryBackend is a map-backed cache.Backend. After Fail(err) every call
// returns err, which simulates an unreachable cache server.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	err     error
	calls   Calls
}

// Calls counts backend round trips by kind.
type Calls struct {
	Gets, Sets, Dels int
}

var _ cache.Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string][]byte{}}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Gets++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Sets++
	if m.err != nil {
		return m.err
	}
	m.entries[key] = value
	return nil
}

func (m *MemoryBackend) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Dels++
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Has reports whether key (with prefix) is currently stored.
func (m *MemoryBackend) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// Calls returns the round trips made so far.
func (m *MemoryBackend) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Fail toggles the simulated outage.
func (m *MemoryBackend) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

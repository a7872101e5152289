// Package cache provides an optional result cache for idempotent queries,
// with an in-memory backend and a Redis backend for sharing across processes.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store holds query results keyed by a caller-derived key. Implementations
// are safe for concurrent use. Get returns ok=false on miss or expiry.
type Store interface {
	Get(ctx context.Context, key string) (values []any, ok bool)
	Put(ctx context.Context, key string, values []any, ttl time.Duration)
	Close() error
}

type memoryEntry struct {
	values  []any
	expires time.Time
}

// Memory is a process-local Store with periodic expiry sweeps.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	stop    chan struct{}
	once    sync.Once
}

// NewMemory returns a Memory store sweeping expired entries every
// sweepInterval (defaults to 30s when <= 0).
func NewMemory(sweepInterval time.Duration) *Memory {
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	m := &Memory{entries: make(map[string]memoryEntry), stop: make(chan struct{})}
	go m.sweepLoop(sweepInterval)
	return m
}

func (m *Memory) sweepLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now()
	m.mu.Lock()
	for k, e := range m.entries {
		if e.expires.Before(now) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, key string) ([]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.expires.Before(time.Now()) {
		delete(m.entries, key)
		return nil, false
	}
	return e.values, true
}

func (m *Memory) Put(_ context.Context, key string, values []any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{values: values, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPut(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok, "empty store should miss")

	m.Put(ctx, "k", []any{int32(1), "a"}, time.Minute)
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []any{int32(1), "a"}, got)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Put(ctx, "k", []any{"v"}, 10*time.Millisecond)
	_, ok := m.Get(ctx, "k")
	require.True(t, ok, "entry should be live before ttl")

	time.Sleep(20 * time.Millisecond)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok, "entry should expire after ttl")
}

func TestMemoryZeroTTLNotStored(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Put(ctx, "k", []any{"v"}, 0)
	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemorySweepRemovesExpired(t *testing.T) {
	m := NewMemory(5 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	m.Put(ctx, "k", []any{"v"}, time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		n := len(m.entries)
		m.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Error("sweep never removed the expired entry")
}

func TestMemoryCloseIdempotent(t *testing.T) {
	m := NewMemory(time.Minute)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	s, err := New("", "", 0)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*Memory)
	assert.True(t, ok, "empty address should select the in-memory backend")
}

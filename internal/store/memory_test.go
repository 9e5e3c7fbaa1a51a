package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute, 10)

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", "v1"))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", v)

	require.NoError(t, m.Set(ctx, "k", "v2"))
	v, _, _ = m.Get(ctx, "k")
	require.Equal(t, "v2", v)
	require.Equal(t, 1, m.Len())
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore(10*time.Minute, 0)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v"))

	now = now.Add(9 * time.Minute)
	_, ok, _ := m.Get(ctx, "k")
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour, 2)

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	require.NoError(t, m.Set(ctx, "a", "1b"))
	require.NoError(t, m.Set(ctx, "c", "3"))

	_, ok, _ := m.Get(ctx, "b")
	require.False(t, ok, "b was the oldest insertion")
	v, ok, _ := m.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, "1b", v)
	_, ok, _ = m.Get(ctx, "c")
	require.True(t, ok)
	require.Equal(t, 2, m.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute, 50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%80)
				_ = m.Set(ctx, key, key)
				if v, ok, _ := m.Get(ctx, key); ok {
					require.Equal(t, key, v)
				}
			}
		}(i)
	}
	wg.Wait()
	require.LessOrEqual(t, m.Len(), 50)
}

func TestMemoryStore_ZeroMaxEntriesIsBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour, 0)

	for i := 0; i < DefaultMaxEntries+25; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("question-%d", i), "reply"))
	}
	require.Equal(t, DefaultMaxEntries, m.Len())

	_, ok, _ := m.Get(ctx, "question-0")
	require.False(t, ok)
	_, ok, _ = m.Get(ctx, fmt.Sprintf("question-%d", DefaultMaxEntries+24))
	require.True(t, ok)
}

func TestMemoryStore_SweepsExpiredBeforeEvicting(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore(time.Minute, 3)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "old-1", "v"))
	require.NoError(t, m.Set(ctx, "old-2", "v"))
	now = now.Add(30 * time.Second)
	require.NoError(t, m.Set(ctx, "fresh", "v"))

	now = now.Add(45 * time.Second)
	require.NoError(t, m.Set(ctx, "new", "v"))

	require.Equal(t, 2, m.Len())
	_, ok, _ := m.Get(ctx, "fresh")
	require.True(t, ok, "unexpired entry survives the sweep")
	_, ok, _ = m.Get(ctx, "new")
	require.True(t, ok)
}

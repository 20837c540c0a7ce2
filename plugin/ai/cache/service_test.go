package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("key1", []byte("value1"), 0)

		val, ok := cache.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := cache.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		cache.Set("key2", []byte("original"), 0)
		cache.Set("key2", []byte("updated"), 0)

		val, ok := cache.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
	})
}

func TestLRUCache_Expiration(t *testing.T) {
	cache := NewLRUCache(100, 50*time.Millisecond)

	cache.Set("expiring", []byte("value"), 50*time.Millisecond)

	// Readable before the TTL elapses
	val, ok := cache.Get("expiring")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), val)

	// A read at or past the TTL is a miss
	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get("expiring")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	cache.Set("a", []byte("1"), 0)
	cache.Set("b", []byte("2"), 0)
	cache.Set("c", []byte("3"), 0)

	// Touch "a" so "b" becomes the oldest
	cache.Get("a")
	cache.Set("d", []byte("4"), 0)

	_, ok := cache.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = cache.Get("a")
	assert.True(t, ok)
}

func TestLRUCache_Invalidate(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)

	cache.Set("42:people", []byte("p"), 0)
	cache.Set("42:themes", []byte("t"), 0)
	cache.Set("42:semantic:q1", []byte("s1"), 0)
	cache.Set("42:semantic:q2", []byte("s2"), 0)
	cache.Set("7:people", []byte("other"), 0)

	t.Run("exact", func(t *testing.T) {
		count := cache.Invalidate("42:people")
		assert.Equal(t, 1, count)
		_, ok := cache.Get("42:people")
		assert.False(t, ok)
	})

	t.Run("wildcard", func(t *testing.T) {
		count := cache.Invalidate("42:semantic:*")
		assert.Equal(t, 2, count)
		_, ok := cache.Get("7:people")
		assert.True(t, ok, "other users' entries must survive")
	})
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)

	cache.Set("short", []byte("v"), 10*time.Millisecond)
	cache.Set("long", []byte("v"), time.Minute)

	time.Sleep(20 * time.Millisecond)
	removed := cache.CleanupExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Size())
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	cache := NewLRUCache(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				cache.Set(key, []byte("v"), 0)
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, cache.Size())
}

func TestService_Lifecycle(t *testing.T) {
	svc := NewService(ServiceConfig{
		Capacity:        10,
		DefaultTTL:      time.Minute,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer svc.Close()

	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "k", []byte("v"), 5*time.Millisecond))

	// Cleanup loop should sweep the expired entry even without a read.
	assert.Eventually(t, func() bool {
		return svc.Size() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestService_Stats(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	defer svc.Close()

	ctx := context.Background()
	svc.Set(ctx, "k", []byte("v"), 0)
	svc.Get(ctx, "k")
	svc.Get(ctx, "missing")

	hits, misses := svc.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "42:people", Key(42, "people"))
	assert.Equal(t, "42:semantic:how is sarah", Key(42, "semantic", "how is sarah"))
}

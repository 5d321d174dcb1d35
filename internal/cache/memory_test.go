package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("authz")

	require.NoError(t, s.Set(ctx, "user:1", `{"id":1}`, time.Minute))

	val, err := s.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, val)

	_, err = s.Get(ctx, "user:2")
	assert.True(t, IsNotFound(err))
}

func TestMemorySetOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "k", "old", time.Minute))
	require.NoError(t, s.Set(ctx, "k", "new", time.Minute))

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", val)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "k", "v", 30*time.Millisecond))

	// Within TTL: hit.
	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	time.Sleep(40 * time.Millisecond)

	// TTL elapsed: miss, even without a sweep.
	_, err = s.Get(ctx, "k")
	assert.True(t, IsNotFound(err))

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryExpiryBoundaryIsInclusive(t *testing.T) {
	// An entry whose expiry instant has been reached counts as expired: the
	// rule is "miss at >= TTL elapsed", not strictly after.
	entry := memoryEntry{value: "v", expiresAt: time.Unix(1000, 0)}

	assert.False(t, entry.expired(time.Unix(999, 0)))
	assert.True(t, entry.expired(time.Unix(1000, 0)))
	assert.True(t, entry.expired(time.Unix(1001, 0)))
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "k", "v", 0))

	entry := memoryEntry{value: "v", noExpire: true}
	assert.False(t, entry.expired(time.Now().Add(24*time.Hour)))

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))

	// Invalidation guarantee: the very next Get misses.
	_, err := s.Get(ctx, "k")
	assert.True(t, IsNotFound(err))
}

func TestMemoryDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("authz")

	require.NoError(t, s.Set(ctx, "user:1", "a", time.Minute))
	require.NoError(t, s.Set(ctx, "user:2", "b", time.Minute))
	require.NoError(t, s.DeleteAll(ctx))

	_, err := s.Get(ctx, "user:1")
	assert.True(t, IsNotFound(err))
	_, err = s.Get(ctx, "user:2")
	assert.True(t, IsNotFound(err))
}

func TestMemoryCleanupReclaimsExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "dead", "v", 10*time.Millisecond))
	require.NoError(t, s.Set(ctx, "live", "v", time.Hour))

	time.Sleep(20 * time.Millisecond)
	s.Cleanup()

	s.mu.RLock()
	_, deadPresent := s.data["dead"]
	_, livePresent := s.data["live"]
	s.mu.RUnlock()

	assert.False(t, deadPresent)
	assert.True(t, livePresent)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	_, _ = s.Get(ctx, "k")
	_, _ = s.Get(ctx, "missing")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Driver)
	assert.Equal(t, int64(1), stats.Keys)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				_ = s.Set(ctx, "shared", "v", time.Minute)
				_, _ = s.Get(ctx, "shared")
				_ = s.Delete(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

func TestMemoryClosedStoreRejectsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set(ctx, "k", "v", time.Minute), ErrClosed)
	assert.ErrorIs(t, s.DeleteAll(ctx), ErrClosed)

	_, err := s.Get(ctx, "k")
	assert.True(t, IsNotFound(err))
}

func TestNewFactory(t *testing.T) {
	s, err := New(Config{Driver: "memory", Prefix: "authz"})
	require.NoError(t, err)
	_, ok := s.(*memoryStore)
	assert.True(t, ok)

	// Unknown drivers fall back to memory.
	s, err = New(Config{Driver: "bogus"})
	require.NoError(t, err)
	_, ok = s.(*memoryStore)
	assert.True(t, ok)
}

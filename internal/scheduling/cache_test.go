package scheduling

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSlotCache(t *testing.T) (SlotCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRedisSlotCache(client, log.New(os.Stdout, "test: ", log.LstdFlags)), server
}

func TestRedisSlotCache(t *testing.T) {
	ctx := context.Background()
	monday := time.Date(2021, 8, 9, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2021, 8, 10, 0, 0, 0, 0, time.UTC)

	t.Run("should miss on an empty cache", func(t *testing.T) {
		cache, _ := newTestSlotCache(t)
		slots, ok := cache.GetSlots(ctx, 1, tuesday)
		assert.False(t, ok)
		assert.Nil(t, slots)
	})

	t.Run("should return what was stored for the same doctor and day", func(t *testing.T) {
		cache, _ := newTestSlotCache(t)
		cache.SetSlots(ctx, 1, tuesday, []string{"09:00", "09:30"})
		slots, ok := cache.GetSlots(ctx, 1, tuesday)
		require.True(t, ok)
		assert.Equal(t, []string{"09:00", "09:30"}, slots)
	})

	t.Run("should store an empty day distinctly from a miss", func(t *testing.T) {
		cache, _ := newTestSlotCache(t)
		cache.SetSlots(ctx, 1, tuesday, []string{})
		slots, ok := cache.GetSlots(ctx, 1, tuesday)
		require.True(t, ok)
		assert.Empty(t, slots)
	})

	t.Run("should keep doctors and days apart", func(t *testing.T) {
		cache, _ := newTestSlotCache(t)
		cache.SetSlots(ctx, 1, tuesday, []string{"09:00"})
		_, ok := cache.GetSlots(ctx, 2, tuesday)
		assert.False(t, ok)
		_, ok = cache.GetSlots(ctx, 1, monday)
		assert.False(t, ok)
	})

	t.Run("should expire entries after the TTL", func(t *testing.T) {
		cache, server := newTestSlotCache(t)
		cache.SetSlots(ctx, 1, tuesday, []string{"09:00"})
		server.FastForward(slotCacheTTL + time.Second)
		_, ok := cache.GetSlots(ctx, 1, tuesday)
		assert.False(t, ok)
	})

	t.Run("should drop a single day on invalidation", func(t *testing.T) {
		cache, _ := newTestSlotCache(t)
		cache.SetSlots(ctx, 1, monday, []string{"09:00"})
		cache.SetSlots(ctx, 1, tuesday, []string{"10:00"})
		cache.InvalidateDay(ctx, 1, tuesday)
		_, ok := cache.GetSlots(ctx, 1, tuesday)
		assert.False(t, ok)
		_, ok = cache.GetSlots(ctx, 1, monday)
		assert.True(t, ok)
	})

	t.Run("should drop every day of the doctor on a window change", func(t *testing.T) {
		cache, _ := newTestSlotCache(t)
		cache.SetSlots(ctx, 1, monday, []string{"09:00"})
		cache.SetSlots(ctx, 1, tuesday, []string{"10:00"})
		cache.SetSlots(ctx, 2, tuesday, []string{"11:00"})
		cache.InvalidateDoctor(ctx, 1)
		_, ok := cache.GetSlots(ctx, 1, monday)
		assert.False(t, ok)
		_, ok = cache.GetSlots(ctx, 1, tuesday)
		assert.False(t, ok)
		slots, ok := cache.GetSlots(ctx, 2, tuesday)
		require.True(t, ok)
		assert.Equal(t, []string{"11:00"}, slots)
	})

	t.Run("should treat an unparseable entry as a miss", func(t *testing.T) {
		cache, server := newTestSlotCache(t)
		require.NoError(t, server.Set(slotCacheKey(1, tuesday), "not json"))
		_, ok := cache.GetSlots(ctx, 1, tuesday)
		assert.False(t, ok)
	})
}

func TestNopSlotCache(t *testing.T) {
	ctx := context.Background()
	tuesday := time.Date(2021, 8, 10, 0, 0, 0, 0, time.UTC)
	cache := NewNopSlotCache()
	cache.SetSlots(ctx, 1, tuesday, []string{"09:00"})
	slots, ok := cache.GetSlots(ctx, 1, tuesday)
	assert.False(t, ok)
	assert.Nil(t, slots)
	cache.InvalidateDay(ctx, 1, tuesday)
	cache.InvalidateDoctor(ctx, 1)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheSetAndGet(t *testing.T) {
	c := NewMemoryCache(context.Background(), time.Hour)
	c.Set(context.Background(), "seed:track-1", []string{"a", "b"}, time.Minute)

	value, found := c.Get(context.Background(), "seed:track-1")
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, value)
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	c := NewMemoryCache(context.Background(), time.Hour)
	c.Set(context.Background(), "k", "v", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	_, found := c.Get(context.Background(), "k")
	assert.False(t, found)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(context.Background(), time.Hour)
	c.Set(context.Background(), "k", "v", time.Minute)
	c.Delete(context.Background(), "k")

	_, found := c.Get(context.Background(), "k")
	assert.False(t, found)
}

func TestMemoryCacheTracksHitsAndMisses(t *testing.T) {
	c := NewMemoryCache(context.Background(), time.Hour)
	c.Set(context.Background(), "k", "v", time.Minute)

	_, _ = c.Get(context.Background(), "k")
	_, _ = c.Get(context.Background(), "missing")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

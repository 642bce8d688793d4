package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(8, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", 42)
	val, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, val)
}

func TestLRUEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// touch a so b becomes least recently used
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := New(8, 20*time.Millisecond)
	c.Set("k", "v")

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire after its TTL")
}

func TestInvalidate(t *testing.T) {
	c := New(8, time.Minute)
	c.Set("k", 1)

	assert.True(t, c.Invalidate("k"))
	assert.False(t, c.Invalidate("k"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(32, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(Key("person", "p1", fmt.Sprintf("field%d", i)), i)
	}
	c.Set(Key("person", "p2", "view"), "keep")
	c.Set(Key("adjacency", "all"), "keep")

	removed := c.InvalidatePrefix(Key("person", "p1"))
	assert.Equal(t, 5, removed)

	_, ok := c.Get(Key("person", "p2", "view"))
	assert.True(t, ok)
	_, ok = c.Get(Key("adjacency", "all"))
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	c := New(8, time.Minute)
	c.Set("k", 1)

	_, _ = c.Get("k")
	_, _ = c.Get("k")
	_, _ = c.Get("nope")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

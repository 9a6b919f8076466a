package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCacheWithOptions(time.Minute, 0, 10)

	c.Set("profile:abc", "value")
	v, ok := c.Get("profile:abc")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiration(t *testing.T) {
	c := NewCacheWithOptions(time.Minute, 0, 10)

	c.SetWithExpiration("k", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_DeleteAndFlush(t *testing.T) {
	c := NewCacheWithOptions(time.Minute, 0, 10)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Count())

	c.Flush()
	assert.Equal(t, 0, c.Count())
}

func TestCache_EvictsWhenFull(t *testing.T) {
	c := NewCacheWithOptions(time.Minute, 0, 2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Count())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

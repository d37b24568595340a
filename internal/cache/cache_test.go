package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source for TTL tests.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time          { return f.current }
func (f *fakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	return New(ttl, WithClock(clock.Now)), clock
}

func TestGet_BeforeAndAfterExpiry(t *testing.T) {
	// Arrange
	c, clock := newTestCache(30 * time.Minute)
	c.Set("dashboard:USD", 42.0)

	// Act & Assert: retrievable before the TTL elapses
	val, ok := c.Get("dashboard:USD")
	assert.True(t, ok)
	assert.Equal(t, 42.0, val)

	clock.Advance(29 * time.Minute)
	_, ok = c.Get("dashboard:USD")
	assert.True(t, ok)

	// A miss once the TTL has elapsed
	clock.Advance(2 * time.Minute)
	_, ok = c.Get("dashboard:USD")
	assert.False(t, ok)

	// The expired entry was lazily evicted on access
	assert.Equal(t, 0, c.Len())
}

func TestSetTTL_OverridesDefault(t *testing.T) {
	c, clock := newTestCache(30 * time.Minute)
	c.SetTTL("analytics:all:1Y:USD", "result", 5*time.Minute)

	clock.Advance(6 * time.Minute)
	_, ok := c.Get("analytics:all:1Y:USD")
	assert.False(t, ok)
}

func TestGet_MissingKey(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCleanup_RemovesOnlyExpired(t *testing.T) {
	c, clock := newTestCache(10 * time.Minute)
	c.Set("old", 1)
	clock.Advance(8 * time.Minute)
	c.Set("fresh", 2)
	clock.Advance(4 * time.Minute) // "old" is now 12m old, "fresh" 4m

	removed := c.Cleanup()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestClear_RemovesEverything(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("holdings", "pf-1", "realtime"), Key("holdings", "pf-1", "realtime"))
	assert.Equal(t, "dashboard:USD", Key("dashboard", "USD"))
	assert.Equal(t, "status", Key("status"))
	assert.NotEqual(t, Key("dashboard", "USD"), Key("dashboard", "INR"))
}

func TestSet_OverwriteRefreshesExpiry(t *testing.T) {
	c, clock := newTestCache(10 * time.Minute)
	c.Set("k", 1)
	clock.Advance(9 * time.Minute)
	c.Set("k", 2)
	clock.Advance(9 * time.Minute)

	val, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, val)
}

package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(defaultTTL time.Duration) (*Cache, *time.Time) {
	c := New(defaultTTL)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestRoundTrip(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("k", "v", time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)
}

func TestExpiryEvictsLazily(t *testing.T) {
	c, now := newTestCache(time.Minute)

	c.Set("k", "v", time.Second)
	*now = now.Add(1001 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len(), "expired entry must be evicted on read")
}

func TestEpochChangeInvalidatesUnexpiredEntries(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("k", "v", time.Hour)

	// Simulate a redeploy: the process epoch moves on while TTLs still run.
	c.epoch++

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestSetStampsCurrentEpoch(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.epoch++
	c.Set("k", "v", time.Hour)

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)
}

func TestZeroTTLUsesDefault(t *testing.T) {
	c, now := newTestCache(10 * time.Second)

	c.Set("k", "v", 0)
	*now = now.Add(9 * time.Second)
	_, ok := c.Get("k")
	require.True(t, ok)

	*now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Delete("a")
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestCachedReadThrough(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	calls := 0
	produce := func() (int, error) {
		calls++
		return 7, nil
	}

	got, err := Cached(c, "k", time.Minute, produce)
	require.NoError(t, err)
	require.Equal(t, 7, got)

	got, err = Cached(c, "k", time.Minute, produce)
	require.NoError(t, err)
	require.Equal(t, 7, got)
	require.Equal(t, 1, calls, "second read must be served from cache")
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	_, err := Cached(c, "k", time.Minute, func() (int, error) {
		return 0, errors.New("provider down")
	})
	require.Error(t, err)
	require.Equal(t, 0, c.Len())
}

func TestCachedRecoversFromTypeClash(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("k", "a string", 0)
	got, err := Cached(c, "k", time.Minute, func() (int, error) { return 5, nil })
	require.NoError(t, err)
	require.Equal(t, 5, got)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%4))
			for j := 0; j < 200; j++ {
				c.Set(key, j, 0)
				c.Get(key)
				if j%50 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}

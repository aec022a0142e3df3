package cache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tradeqa/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string, int](cache.Config{TTL: 6 * time.Hour, Now: clock.Now})

	c.Put("a", 1)
	clock.Advance(6*time.Hour - time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestEvictsOldestWhenFull(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string, int](cache.Config{MaxEntries: 2, Now: clock.Now})

	c.Put("first", 1)
	clock.Advance(time.Minute)
	c.Put("second", 2)
	clock.Advance(time.Minute)
	c.Put("third", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)

	// Overwriting an existing key never evicts.
	c.Put("second", 22)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrLoadSingleFlight(t *testing.T) {
	c := cache.New[string, string](cache.Config{})

	var calls int32
	release := make(chan struct{})
	load := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "built", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad("doc", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "built", r)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := cache.New[string, int](cache.Config{})

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrLoad("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestPurge(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string, int](cache.Config{TTL: time.Hour, Now: clock.Now})

	c.Put("old", 1)
	clock.Advance(2 * time.Hour)
	c.Put("new", 2)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

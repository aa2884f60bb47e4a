package ttlcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_GetCachesUntilExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	var calls atomic.Int32

	cache := New(time.Minute, func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, WithClock[int](clock.Now))

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(30 * time.Second)
	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(31 * time.Second)
	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_Invalidate(t *testing.T) {
	var calls atomic.Int32
	cache := New(time.Hour, func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	cache.Invalidate()

	_, fresh := cache.Peek()
	assert.False(t, fresh)

	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestCache_ServesStaleOnReloadError(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	fail := false

	cache := New(time.Minute, func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("settings table unavailable")
		}
		return "v1", nil
	}, WithClock[string](clock.Now))

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	fail = true
	clock.Advance(2 * time.Minute)

	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.Error(t, err)
}

func TestCache_ConcurrentMissesLoadOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	cache := New(time.Hour, func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value

	cache := New(time.Hour, func(ctx context.Context) (int, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
			return 0, err
		}
		return 42, nil
	})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Get(firstCtx)
		firstErr <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, err := cache.Get(context.Background())
		assert.NoError(t, err)
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, 42, <-second)
	assert.Nil(t, loadErr.Load())
	assert.Equal(t, int32(1), calls.Load())

	v, ok := cache.Peek()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCache_LoadTimeout(t *testing.T) {
	cache := New(time.Hour, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, WithLoadTimeout[int](20*time.Millisecond))

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSlidingWindow_BlocksSixteenthCall(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewSlidingWindow(15, time.Minute, WithClock(clock.Now))
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		ok, _ := l.Allow(ctx, "u1")
		require.True(t, ok, "call %d", i+1)
		clock.Advance(time.Second)
	}

	ok, retry := l.Allow(ctx, "u1")
	require.False(t, ok)
	// first call was 15s ago, so it leaves the window in 45s
	assert.Equal(t, 45*time.Second, retry)

	ok, _ = l.Allow(ctx, "u2")
	assert.True(t, ok, "other users are unaffected")
}

func TestSlidingWindow_AllowsAfterWindowSlides(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewSlidingWindow(2, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "u")
	require.True(t, ok)
	clock.Advance(30 * time.Second)
	ok, _ = l.Allow(ctx, "u")
	require.True(t, ok)

	ok, _ = l.Allow(ctx, "u")
	require.False(t, ok)

	clock.Advance(31 * time.Second)
	ok, _ = l.Allow(ctx, "u")
	assert.True(t, ok, "oldest call has left the window")

	ok, _ = l.Allow(ctx, "u")
	assert.False(t, ok)
}

func TestSlidingWindow_RejectedCallsDoNotCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewSlidingWindow(1, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "u")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow(ctx, "u")
		require.False(t, ok)
	}
	clock.Advance(time.Minute + time.Millisecond)
	ok, _ = l.Allow(ctx, "u")
	assert.True(t, ok)
}

func TestSlidingWindow_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewSlidingWindow(3, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	l.Allow(ctx, "a")
	l.Allow(ctx, "b")
	clock.Advance(45 * time.Second)
	l.Allow(ctx, "b")
	clock.Advance(30 * time.Second)

	l.Sweep()
	assert.Equal(t, 1, l.keys())
}

func TestSlidingWindow_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	l := NewSlidingWindow(15, time.Minute, WithSweepInterval(time.Millisecond))
	defer l.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "same"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 15, allowed)
	l.Close()
}

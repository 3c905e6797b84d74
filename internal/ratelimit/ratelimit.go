// Package ratelimit throttles per-user calls to expensive upstream services.
//
// State lives in process memory, so limits are enforced per instance only.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a keyed call may proceed.
type Limiter interface {
	// Allow records a call for key when permitted and reports the wait otherwise.
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

// SlidingWindow admits at most limit calls per key within any window-long span.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type Option func(*SlidingWindow)

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) { s.now = now }
}

// WithSweepInterval starts a goroutine that drops idle keys every d.
func WithSweepInterval(d time.Duration) Option {
	return func(s *SlidingWindow) { s.sweepEvery = d }
}

func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	s := &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepEvery > 0 {
		go s.sweepLoop(s.sweepEvery)
	}
	return s
}

func (s *SlidingWindow) Allow(_ context.Context, key string) (bool, time.Duration) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := prune(s.hits[key], now.Add(-s.window))
	if len(recent) >= s.limit {
		s.hits[key] = recent
		return false, recent[0].Add(s.window).Sub(now)
	}
	s.hits[key] = append(recent, now)
	return true, 0
}

// Sweep removes keys with no calls inside the current window.
func (s *SlidingWindow) Sweep() {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.hits {
		if recent := prune(ts, cutoff); len(recent) == 0 {
			delete(s.hits, k)
		} else {
			s.hits[k] = recent
		}
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *SlidingWindow) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SlidingWindow) keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

func (s *SlidingWindow) sweepLoop(d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// prune drops timestamps at or before cutoff; ts is ascending.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

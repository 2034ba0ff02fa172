// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
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

func TestSlidingWindowCounterBasic(t *testing.T) {
	clock := newFakeClock()
	sw := NewSlidingWindowCounterWithClock(time.Minute, 12, clock.Now)

	sw.IncrementOne()
	sw.IncrementOne()
	sw.Increment(3)

	if got := sw.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}
}

func TestSlidingWindowCounterExpiry(t *testing.T) {
	clock := newFakeClock()
	sw := NewSlidingWindowCounterWithClock(time.Minute, 12, clock.Now)

	sw.IncrementOne()
	clock.Advance(30 * time.Second)
	sw.IncrementOne()

	if got := sw.Count(); got != 2 {
		t.Errorf("Count() after 30s = %d, want 2", got)
	}

	// First increment falls out of the window, second remains.
	clock.Advance(45 * time.Second)
	if got := sw.Count(); got != 1 {
		t.Errorf("Count() after 75s = %d, want 1", got)
	}

	// Everything expired.
	clock.Advance(2 * time.Minute)
	if got := sw.Count(); got != 0 {
		t.Errorf("Count() after full window elapsed = %d, want 0", got)
	}
}

func TestSlidingWindowCounterReset(t *testing.T) {
	clock := newFakeClock()
	sw := NewSlidingWindowCounterWithClock(time.Minute, 12, clock.Now)

	sw.Increment(10)
	sw.Reset()

	if got := sw.Count(); got != 0 {
		t.Errorf("Count() after Reset = %d, want 0", got)
	}
}

func TestSlidingWindowStorePerKey(t *testing.T) {
	clock := newFakeClock()
	store := NewSlidingWindowStoreWithClock(time.Minute, 12, 0, clock.Now)

	store.Increment("user:alice")
	store.Increment("user:alice")
	store.Increment("user:bob")

	if got := store.Count("user:alice"); got != 2 {
		t.Errorf("Count(alice) = %d, want 2", got)
	}
	if got := store.Count("user:bob"); got != 1 {
		t.Errorf("Count(bob) = %d, want 1", got)
	}
	if got := store.Count("user:carol"); got != 0 {
		t.Errorf("Count(carol) = %d, want 0", got)
	}
}

func TestSlidingWindowStoreMaxKeys(t *testing.T) {
	clock := newFakeClock()
	store := NewSlidingWindowStoreWithClock(time.Minute, 12, 2, clock.Now)

	store.Increment("a")
	store.Increment("b")
	store.Increment("c")

	if got := store.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 (capacity enforced)", got)
	}
}

func TestSlidingWindowStoreCleanupInactive(t *testing.T) {
	clock := newFakeClock()
	store := NewSlidingWindowStoreWithClock(time.Minute, 12, 0, clock.Now)

	store.Increment("a")
	store.Increment("b")
	clock.Advance(2 * time.Minute)
	store.Increment("c")

	removed := store.CleanupInactive()
	if removed != 2 {
		t.Errorf("CleanupInactive() = %d, want 2", removed)
	}
	if got := store.Count("c"); got != 1 {
		t.Errorf("Count(c) = %d, want 1", got)
	}
}

func TestUniqueValueCounterWindow(t *testing.T) {
	clock := newFakeClock()
	u := NewUniqueValueCounterWithClock(5*time.Minute, 10, clock.Now)

	u.Add("alice")
	u.Add("bob")
	u.Add("alice")

	if got := u.CountUnique(); got != 2 {
		t.Errorf("CountUnique() = %d, want 2", got)
	}

	// Alice stays active, bob ages out.
	clock.Advance(3 * time.Minute)
	u.Add("alice")
	clock.Advance(3 * time.Minute)

	if got := u.CountUnique(); got != 1 {
		t.Errorf("CountUnique() after bob aged out = %d, want 1", got)
	}
}

func TestUniqueValueStorePerRoom(t *testing.T) {
	clock := newFakeClock()
	store := NewUniqueValueStoreWithClock(5*time.Minute, 10, 0, clock.Now)

	store.Add("room:general", "alice")
	store.Add("room:general", "bob")
	store.Add("room:gaming", "alice")

	if got := store.CountUnique("room:general"); got != 2 {
		t.Errorf("CountUnique(general) = %d, want 2", got)
	}
	if got := store.CountUnique("room:gaming"); got != 1 {
		t.Errorf("CountUnique(gaming) = %d, want 1", got)
	}

	users := store.GetUnique("room:general")
	if len(users) != 2 {
		t.Errorf("GetUnique(general) returned %d users, want 2", len(users))
	}
}

func TestSlidingWindowCounterConcurrent(t *testing.T) {
	sw := NewSlidingWindowCounter(time.Minute, 12)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sw.IncrementOne()
			}
		}()
	}
	wg.Wait()

	if got := sw.Count(); got != 1000 {
		t.Errorf("Count() = %d, want 1000", got)
	}
}

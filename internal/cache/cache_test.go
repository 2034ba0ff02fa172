// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("key1", "value1")

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected hit for key1")
	}
	if got != "value1" {
		t.Errorf("Get(key1) = %v, want value1", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Close()

	c.Set("ephemeral", 42)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("ephemeral"); ok {
		t.Error("expected entry to expire")
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Close()

	c.SetWithTTL("durable", "v", time.Hour)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("durable"); !ok {
		t.Error("entry with long TTL should survive default TTL")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key should miss")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("cleared cache should miss")
	}
}

func TestCacheHitRate(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	rate := c.HitRate()
	want := 100.0 * 2.0 / 3.0
	if rate < want-0.01 || rate > want+0.01 {
		t.Errorf("HitRate() = %f, want %f", rate, want)
	}
}

func TestGenerateKeyDeterministic(t *testing.T) {
	type params struct {
		UserID string
		Limit  int
	}

	k1 := GenerateKey("recommend", params{UserID: "alice", Limit: 5})
	k2 := GenerateKey("recommend", params{UserID: "alice", Limit: 5})
	k3 := GenerateKey("recommend", params{UserID: "bob", Limit: 5})

	if k1 != k2 {
		t.Errorf("same params should produce same key: %q vs %q", k1, k2)
	}
	if k1 == k3 {
		t.Error("different params should produce different keys")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU[int](3)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	c.Add("d", 4)

	if c.Contains("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !c.Contains("d") {
		t.Error("newest entry should be present")
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRUAccessOrder(t *testing.T) {
	c := NewLRU[int](3)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Add("d", 4)

	if c.Contains("b") {
		t.Error("b should have been evicted after a was touched")
	}
	if !c.Contains("a") {
		t.Error("recently used entry should survive")
	}
}

func TestLRUPeekDoesNotPromote(t *testing.T) {
	c := NewLRU[int](2)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Peek("a")
	c.Add("c", 3)

	if c.Contains("a") {
		t.Error("Peek should not promote, a should have been evicted")
	}
}

func TestLRUUpdate(t *testing.T) {
	c := NewLRU[string](2)

	c.Add("k", "old")
	c.Add("k", "new")

	v, ok := c.Get("k")
	if !ok || v != "new" {
		t.Errorf("Get(k) = %q, %v, want new, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after update", c.Len())
	}
}

func TestLRUKeysOrder(t *testing.T) {
	c := NewLRU[int](5)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	keys := c.Keys()
	want := []string{"c", "b", "a"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() returned %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

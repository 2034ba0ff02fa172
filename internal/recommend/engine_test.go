// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package recommend

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestJaccard(t *testing.T) {
	set := func(items ...string) map[string]struct{} {
		s := make(map[string]struct{})
		for _, i := range items {
			s[i] = struct{}{}
		}
		return s
	}

	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"both empty", set(), set(), 0.0},
		{"one empty", set("a"), set(), 0.0},
		{"disjoint", set("a", "b"), set("c", "d"), 0.0},
		{"identical", set("a", "b"), set("a", "b"), 1.0},
		{"partial overlap", set("A", "B"), set("A", "B", "C"), 2.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Jaccard = %f, want %f", got, tt.want)
			}
		})
	}
}

// Subject s1 has items {A,B}, neighbor s2 has {A,B,C}: similarity 2/3, so
// C is recommended first, then the fallback list pads to the limit.
func TestRecommendCollaborative(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ts := time.Now()
	for _, item := range []string{"A", "B"} {
		if err := e.RecordInteraction("s1", item, InteractionView, ts); err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
	}
	for _, item := range []string{"A", "B", "C"} {
		if err := e.RecordInteraction("s2", item, InteractionView, ts); err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
	}

	resp := e.Recommend("s1", 5)

	if len(resp.Recommendations) != 5 {
		t.Fatalf("got %d recommendations, want 5", len(resp.Recommendations))
	}
	if resp.Recommendations[0] != "C" {
		t.Errorf("first recommendation = %q, want C", resp.Recommendations[0])
	}
	for _, id := range resp.Recommendations {
		if id == "A" || id == "B" {
			t.Errorf("interacted item %q must not be recommended", id)
		}
	}
	if resp.FallbackCount != 4 {
		t.Errorf("FallbackCount = %d, want 4", resp.FallbackCount)
	}
}

func TestRecommendNeverExceedsLimit(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	e.RecordInteraction("u1", "A", InteractionView, time.Now())

	for _, limit := range []int{0, 1, 3, 100} {
		resp := e.Recommend("u1", limit)
		if len(resp.Recommendations) > limit {
			t.Errorf("limit %d: got %d recommendations", limit, len(resp.Recommendations))
		}
	}
}

func TestRecommendColdStartFallsBack(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	resp := e.Recommend("nobody", 3)

	if len(resp.Recommendations) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(resp.Recommendations))
	}
	want := DefaultConfig().Fallback[:3]
	for i, id := range resp.Recommendations {
		if id != want[i] {
			t.Errorf("recommendation[%d] = %q, want %q", i, id, want[i])
		}
	}
	if resp.Confidence != 0 {
		t.Errorf("pure fallback response should have zero confidence, got %f", resp.Confidence)
	}
}

func TestRecommendFallbackRespectsExclusion(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	// The user already interacted with a fallback item; padding must
	// skip it.
	e.RecordInteraction("u1", "trending-gaming-stream", InteractionView, time.Now())

	resp := e.Recommend("u1", 5)
	for _, id := range resp.Recommendations {
		if id == "trending-gaming-stream" {
			t.Error("fallback padding must not include interacted items")
		}
	}
}

func TestRecommendBelowThresholdIgnoresNeighbor(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	ts := time.Now()
	// Overlap 1/11 < 0.1 threshold.
	e.RecordInteraction("s1", "X", InteractionView, ts)
	for _, item := range []string{"X", "i1", "i2", "i3", "i4", "i5", "i6", "i7", "i8", "i9", "i10"} {
		e.RecordInteraction("s2", item, InteractionView, ts)
	}

	resp := e.Recommend("s1", 5)
	for _, id := range resp.Recommendations {
		if id == "i1" {
			t.Error("items from a below-threshold neighbor should not appear")
		}
	}
}

func TestRecommendPerNeighborQuota(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ts := time.Now()
	e.RecordInteraction("s1", "A", InteractionView, ts)
	// Neighbor shares A plus six more items; only 3 may contribute.
	for _, item := range []string{"A", "n1", "n2", "n3", "n4", "n5", "n6"} {
		e.RecordInteraction("s2", item, InteractionView, ts)
	}

	resp := e.Recommend("s1", 10)

	fromNeighbor := 0
	for _, id := range resp.Recommendations {
		switch id {
		case "n1", "n2", "n3", "n4", "n5", "n6":
			fromNeighbor++
		}
	}
	if fromNeighbor != 3 {
		t.Errorf("neighbor contributed %d items, want 3", fromNeighbor)
	}
}

func TestEngagementClamped(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	for i := 0; i < 50; i++ {
		e.RecordInteraction("u1", "gaming-1", InteractionSubscribe, time.Now())
	}

	p, ok := e.Profile("u1")
	if !ok {
		t.Fatal("expected profile")
	}
	if p.Engagement < 0 || p.Engagement > 1 {
		t.Errorf("Engagement = %f, want within [0,1]", p.Engagement)
	}
}

func TestInteractionUpdatesPreferences(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	e.RecordInteraction("u1", "gaming-42", InteractionLike, time.Now())
	e.RecordInteraction("u1", "gaming-42", InteractionShare, time.Now())

	p, _ := e.Profile("u1")
	want := 0.3 + 0.5
	if math.Abs(p.Preferences["gaming"]-want) > 1e-9 {
		t.Errorf("Preferences[gaming] = %f, want %f", p.Preferences["gaming"], want)
	}
}

func TestRecordInteractionValidation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	if err := e.RecordInteraction("", "item", InteractionView, time.Now()); err == nil {
		t.Error("empty user ID should be rejected")
	}
	if err := e.RecordInteraction("user", "", InteractionView, time.Now()); err == nil {
		t.Error("empty item ID should be rejected")
	}
}

func TestProcessSentiment(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	e.ProcessSentiment("u1", "music-7", 0.9, "joy")
	e.ProcessSentiment("u1", "music-7", 0.3, "neutral")

	p, _ := e.Profile("u1")
	// +0.2 for positive, -0.1 for the rest.
	want := 0.2 - 0.1
	if math.Abs(p.Preferences["music"]-want) > 1e-9 {
		t.Errorf("Preferences[music] = %f, want %f", p.Preferences["music"], want)
	}
	if p.SentimentHistory["music-7"] != 0.3 {
		t.Errorf("SentimentHistory = %f, want last value 0.3", p.SentimentHistory["music-7"])
	}

	item, ok := e.Item("music-7")
	if !ok {
		t.Fatal("expected item in catalog")
	}
	if math.Abs(item.AvgSentiment-0.6) > 1e-9 {
		t.Errorf("AvgSentiment = %f, want 0.6", item.AvgSentiment)
	}
	if item.SentimentCount != 2 {
		t.Errorf("SentimentCount = %d, want 2", item.SentimentCount)
	}
}

func TestSimilarItemsOrderedBySimilarity(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	e.ProcessContentAnalysis("base", []string{"fps", "esports", "pc"}, 0)
	e.ProcessContentAnalysis("close", []string{"fps", "esports", "console"}, 0)
	e.ProcessContentAnalysis("far", []string{"fps", "cooking", "travel"}, 0)
	e.ProcessContentAnalysis("unrelated", []string{"knitting"}, 0)

	resp := e.SimilarItems("base", 2)

	if len(resp.Recommendations) != 2 {
		t.Fatalf("got %d similar items, want 2", len(resp.Recommendations))
	}
	if resp.Recommendations[0] != "close" {
		t.Errorf("first similar item = %q, want close", resp.Recommendations[0])
	}
	for _, id := range resp.Recommendations {
		if id == "unrelated" {
			t.Error("below-threshold item should not appear")
		}
		if id == "base" {
			t.Error("subject item should never recommend itself")
		}
	}
}

func TestTrendingRankedByFrequency(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ts := time.Now()
	for i := 0; i < 3; i++ {
		e.RecordInteraction("u1", "hot", InteractionView, ts)
	}
	e.RecordInteraction("u2", "warm", InteractionView, ts)

	got := e.Trending(2)
	if len(got) != 2 || got[0] != "hot" || got[1] != "warm" {
		t.Errorf("Trending(2) = %v, want [hot warm]", got)
	}
}

func TestContentArenaBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItems = 5
	e := newTestEngine(t, cfg)

	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		e.ProcessContentAnalysis(id, []string{"tag"}, 0)
	}

	present := 0
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		if _, ok := e.Item(id); ok {
			present++
		}
	}
	if present != 5 {
		t.Errorf("arena holds %d items, want 5", present)
	}
	if _, ok := e.Item("g"); !ok {
		t.Error("most recent item should survive eviction")
	}
}

func TestRecentInteractionsEvictedByCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecentInteractions = 3
	e := newTestEngine(t, cfg)

	ts := time.Now()
	e.RecordInteraction("u1", "old", InteractionView, ts)
	for i := 0; i < 3; i++ {
		e.RecordInteraction("u2", "new", InteractionView, ts)
	}

	for _, id := range e.Trending(10) {
		if id == "old" {
			t.Error("evicted interaction should not influence trending")
		}
	}
}

func TestRecommendResponseCached(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ts := time.Now()
	e.RecordInteraction("s1", "A", InteractionView, ts)
	e.RecordInteraction("s2", "A", InteractionView, ts)
	e.RecordInteraction("s2", "B", InteractionView, ts)

	first := e.Recommend("s1", 5)
	// New data arrives but the cached response is still served within TTL.
	e.RecordInteraction("s2", "C", InteractionView, ts)
	second := e.Recommend("s1", 5)

	if len(first.Recommendations) != len(second.Recommendations) {
		t.Fatalf("cached response differs in length: %d vs %d",
			len(first.Recommendations), len(second.Recommendations))
	}
	for i := range first.Recommendations {
		if first.Recommendations[i] != second.Recommendations[i] {
			t.Errorf("cached response differs at %d: %q vs %q",
				i, first.Recommendations[i], second.Recommendations[i])
		}
	}
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package events

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/streamsense/streamsense/internal/recommend"
)

func newTestHandlers(t *testing.T) (*Handlers, *recommend.Engine) {
	t.Helper()
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(engine.Close)
	return NewHandlers(engine, nil, zerolog.Nop()), engine
}

func encode(t *testing.T, ev *Event) []byte {
	t.Helper()
	data, err := NewSerializer().Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestHandleInteractionUpdatesProfile(t *testing.T) {
	h, engine := newTestHandlers(t)

	ev := New(TypeInteraction)
	ev.UserID = "alice"
	ev.ItemID = "gaming-stream-1"
	ev.Interaction = "like"

	if err := h.Handle(context.Background(), TopicInteractions, encode(t, ev)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	profile, ok := engine.Profile("alice")
	if !ok {
		t.Fatal("profile should exist after interaction event")
	}
	if got := profile.Preferences["gaming"]; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("Preferences[gaming] = %f, want 0.3", got)
	}
}

func TestHandleSentimentUpdatesItem(t *testing.T) {
	h, engine := newTestHandlers(t)

	score := 0.8
	ev := New(TypeSentimentScored)
	ev.UserID = "alice"
	ev.ItemID = "music-stream-1"
	ev.Sentiment = &score

	if err := h.Handle(context.Background(), TopicSentiment, encode(t, ev)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	item, ok := engine.Item("music-stream-1")
	if !ok {
		t.Fatal("item should exist after sentiment event")
	}
	if math.Abs(item.AvgSentiment-0.8) > 1e-9 {
		t.Errorf("AvgSentiment = %f, want 0.8", item.AvgSentiment)
	}
}

func TestHandleContentAnalysisMergesFeatures(t *testing.T) {
	h, engine := newTestHandlers(t)

	ev := New(TypeContentAnalysis)
	ev.ItemID = "talk-stream-1"
	ev.Features = []string{"interview", "tech"}
	ev.ViewerCount = 1200

	if err := h.Handle(context.Background(), TopicContent, encode(t, ev)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	item, ok := engine.Item("talk-stream-1")
	if !ok {
		t.Fatal("item should exist after content analysis event")
	}
	if _, ok := item.Features["interview"]; !ok {
		t.Errorf("Features = %v, want interview present", item.Features)
	}
	if item.ViewerCount != 1200 {
		t.Errorf("ViewerCount = %d, want 1200", item.ViewerCount)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	h, engine := newTestHandlers(t)

	if err := h.Handle(context.Background(), TopicInteractions, []byte("{broken")); err != nil {
		t.Errorf("malformed payload should be dropped, got %v", err)
	}
	if _, ok := engine.Profile("alice"); ok {
		t.Error("no profile should be created from a malformed payload")
	}
}

func TestHandleDropsInvalidEvent(t *testing.T) {
	h, engine := newTestHandlers(t)

	// Bypass the serializer's validation by encoding by hand.
	payload := []byte(`{"event_id":"e1","type":"interaction","timestamp":"2026-01-15T12:00:00Z"}`)
	if err := h.Handle(context.Background(), TopicInteractions, payload); err != nil {
		t.Errorf("invalid event should be dropped, got %v", err)
	}
	if _, ok := engine.Profile(""); ok {
		t.Error("no profile should be created from an invalid event")
	}
}

func TestHandleChatMessageIsCountOnly(t *testing.T) {
	h, engine := newTestHandlers(t)

	ev := New(TypeChatMessage)
	ev.RoomID = "general"
	ev.UserID = "alice"
	ev.Content = "hello"

	if err := h.Handle(context.Background(), TopicChatMessages, encode(t, ev)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, ok := engine.Profile("alice"); ok {
		t.Error("chat message events should not touch the engine")
	}
}

func TestHandleThrottleHonorsContext(t *testing.T) {
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(engine.Close)

	// A zero-burst limiter never admits; Handle must give up with the context.
	h := NewHandlers(engine, rate.NewLimiter(rate.Limit(1), 0), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ev := New(TypeChatMessage)
	ev.RoomID = "general"
	ev.UserID = "alice"

	if err := h.Handle(ctx, TopicChatMessages, encode(t, ev)); err == nil {
		t.Error("Handle should fail when the throttle cannot admit before the deadline")
	}
}

func TestNewThrottle(t *testing.T) {
	if NewThrottle(Config{ConsumeRate: 0}) != nil {
		t.Error("zero rate should disable throttling")
	}

	lim := NewThrottle(Config{ConsumeRate: 100, ConsumeBurst: 10})
	if lim == nil {
		t.Fatal("positive rate should enable throttling")
	}
	if lim.Burst() != 10 {
		t.Errorf("Burst = %d, want 10", lim.Burst())
	}
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package events

import (
	"testing"
	"time"
)

func TestSerializerRoundTrip(t *testing.T) {
	s := NewSerializer()

	score := 0.8
	in := New(TypeSentimentScored)
	in.UserID = "alice"
	in.ItemID = "gaming-stream-1"
	in.Sentiment = &score

	data, err := s.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.EventID != in.EventID || out.Type != TypeSentimentScored {
		t.Errorf("round trip = %+v", out)
	}
	if out.Sentiment == nil || *out.Sentiment != 0.8 {
		t.Errorf("Sentiment = %v, want 0.8", out.Sentiment)
	}
	if out.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", out.SchemaVersion, SchemaVersion)
	}
}

func TestMarshalRefusesInvalidEvent(t *testing.T) {
	s := NewSerializer()

	ev := New(TypeInteraction) // missing user and item
	if _, err := s.Marshal(ev); err == nil {
		t.Error("Marshal should refuse an interaction without user_id and item_id")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	s := NewSerializer()

	if _, err := s.Unmarshal([]byte("{not json")); err == nil {
		t.Error("Unmarshal should fail on malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	base := func(typ string) *Event {
		ev := New(typ)
		ev.RoomID = "general"
		ev.UserID = "alice"
		ev.ItemID = "stream-1"
		return ev
	}
	score := 0.5
	bad := 1.5

	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{"chat message", base(TypeChatMessage), false},
		{"interaction", base(TypeInteraction), false},
		{"content analysis", base(TypeContentAnalysis), false},
		{"missing type", &Event{EventID: "e", Timestamp: time.Now()}, true},
		{"unknown type", base("mystery"), true},
		{"missing event id", &Event{Type: TypeChatMessage, Timestamp: time.Now(), RoomID: "r", UserID: "u"}, true},
		{"zero timestamp", &Event{EventID: "e", Type: TypeChatMessage, RoomID: "r", UserID: "u"}, true},
		{"sentiment without score", base(TypeSentimentScored), true},
		{"sentiment with score", func() *Event {
			ev := base(TypeSentimentScored)
			ev.Sentiment = &score
			return ev
		}(), false},
		{"sentiment out of range", func() *Event {
			ev := base(TypeSentimentScored)
			ev.Sentiment = &bad
			return ev
		}(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventTopicMapping(t *testing.T) {
	tests := []struct {
		typ   string
		topic string
	}{
		{TypeChatMessage, TopicChatMessages},
		{TypeSentimentRequest, TopicSentiment},
		{TypeSentimentScored, TopicSentiment},
		{TypeInteraction, TopicInteractions},
		{TypeContentAnalysis, TopicContent},
		{"mystery", ""},
	}

	for _, tt := range tests {
		if got := (&Event{Type: tt.typ}).Topic(); got != tt.topic {
			t.Errorf("Topic(%s) = %q, want %q", tt.typ, got, tt.topic)
		}
	}
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package events defines the analytics event schema and the NATS/Watermill
// plumbing that moves events between the chat service and the recommendation
// engine. The bus is optional: default builds compile stubs, and the full
// transport is enabled with -tags=nats.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = 1

// Event types.
const (
	TypeChatMessage      = "chat_message"
	TypeSentimentRequest = "sentiment_request"
	TypeSentimentScored  = "sentiment_scored"
	TypeInteraction      = "interaction"
	TypeContentAnalysis  = "content_analysis"
)

// Topics. One subject per event family; sentiment requests and scored
// results share a subject and are told apart by event type.
const (
	TopicChatMessages = "chat.messages"
	TopicSentiment    = "sentiment.events"
	TopicInteractions = "interaction.events"
	TopicContent      = "content.analysis"
)

// StreamName is the JetStream stream holding all analytics subjects.
const StreamName = "STREAMSENSE"

// Topics returns every subject the aggregator consumes.
func Topics() []string {
	return []string{TopicChatMessages, TopicSentiment, TopicInteractions, TopicContent}
}

// Event is the canonical analytics event. Fields are populated per type;
// Validate enforces the per-type requirements.
type Event struct {
	SchemaVersion int       `json:"schema_version,omitempty"`
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`

	// Chat fields
	RoomID      string `json:"room_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type,omitempty"`

	// Interaction and sentiment fields
	ItemID      string   `json:"item_id,omitempty"`
	Interaction string   `json:"interaction,omitempty"`
	Sentiment   *float64 `json:"sentiment,omitempty"`

	// Content analysis fields
	Features    []string `json:"features,omitempty"`
	ViewerCount int64    `json:"viewer_count,omitempty"`
}

// New creates an event with a unique ID, timestamp, and schema version.
func New(eventType string) *Event {
	return &Event{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
	}
}

// Topic returns the subject this event is published to.
func (e *Event) Topic() string {
	switch e.Type {
	case TypeChatMessage:
		return TopicChatMessages
	case TypeSentimentRequest, TypeSentimentScored:
		return TopicSentiment
	case TypeInteraction:
		return TopicInteractions
	case TypeContentAnalysis:
		return TopicContent
	default:
		return ""
	}
}

// Validate checks required fields. Per-type checks cover only what the
// consumer side depends on.
func (e *Event) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	switch e.Type {
	case TypeChatMessage, TypeSentimentRequest:
		if e.RoomID == "" || e.UserID == "" {
			return fmt.Errorf("%s requires room_id and user_id", e.Type)
		}
	case TypeSentimentScored:
		if e.UserID == "" || e.ItemID == "" {
			return fmt.Errorf("sentiment_scored requires user_id and item_id")
		}
		if e.Sentiment == nil {
			return fmt.Errorf("sentiment_scored requires a sentiment score")
		}
		if *e.Sentiment < 0 || *e.Sentiment > 1 {
			return fmt.Errorf("sentiment score %f out of range [0, 1]", *e.Sentiment)
		}
	case TypeInteraction:
		if e.UserID == "" || e.ItemID == "" {
			return fmt.Errorf("interaction requires user_id and item_id")
		}
	case TypeContentAnalysis:
		if e.ItemID == "" {
			return fmt.Errorf("content_analysis requires item_id")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	return nil
}

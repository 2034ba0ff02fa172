// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package rooms

import (
	"time"

	"github.com/goccy/go-json"
)

// Message types for room fan-out.
const (
	MessageTypeChat             = "chat"
	MessageTypeUserJoined       = "user_joined"
	MessageTypeUserLeft         = "user_left"
	MessageTypeParticipantCount = "participant_count"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

// Message is the envelope delivered to every session in a room.
type Message struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"room_id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ParticipantCountData is the payload of participant_count messages.
type ParticipantCountData struct {
	RoomID string `json:"room_id"`
	Count  int    `json:"count"`
}

// PresenceData is the payload of user_joined and user_left messages.
type PresenceData struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Session is one connected listener. The registry only calls Send and Close;
// connection lifecycle beyond that belongs to the transport.
//
// Send must not block: it returns false when the session cannot accept the
// message (closed or backed up), which the registry treats as a dead session.
type Session interface {
	ID() string
	UserID() string
	Send(msg Message) bool
	Close()
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package chat

import (
	"errors"
	"time"
)

// Service errors. Handlers map these onto HTTP status codes.
var (
	ErrInvalidInput    = errors.New("chat: invalid input")
	ErrRoomNotFound    = errors.New("chat: room not found")
	ErrMessageNotFound = errors.New("chat: message not found")
	ErrRateLimited     = errors.New("chat: rate limited")
	ErrForbidden       = errors.New("chat: forbidden")
)

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeEmote  = "emote"
	MessageTypeSystem = "system"
)

// Room is the metadata for a chat room. Live session membership is tracked
// separately by the room registry; a room's metadata survives everyone
// disconnecting.
type Room struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	StreamerID      string    `json:"streamer_id"`
	Active          bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	MessageCount    int64     `json:"message_count"`
	ActiveUserCount int       `json:"active_user_count"`
}

// Message is one chat message.
type Message struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	Content     string     `json:"content"`
	MessageType string     `json:"message_type"`
	Timestamp   time.Time  `json:"timestamp"`
	Edited      bool       `json:"edited"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
}

// Analytics summarizes room activity.
type Analytics struct {
	RoomID         string           `json:"room_id"`
	TotalMessages  int              `json:"total_messages"`
	RecentMessages int              `json:"recent_messages"`
	ActiveUsers    int              `json:"active_users"`
	MessageTypes   map[string]int64 `json:"message_types"`
	TopUsers       map[string]int64 `json:"top_users"`
	CreatedAt      time.Time        `json:"created_at"`
	Active         bool             `json:"is_active"`
}

// HistoryQuery selects a page of room history. Before and After filter by
// timestamp when non-zero.
type HistoryQuery struct {
	Page   int
	Size   int
	Before time.Time
	After  time.Time
}

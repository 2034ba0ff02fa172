// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package api

import (
	"net/http"
	"strconv"
	"time"
)

// CreateRoomRequest is the body of POST /api/v1/rooms.
type CreateRoomRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	StreamerID  string `json:"streamer_id" validate:"required,min=1,max=100"`
}

// SendMessageRequest is the body of POST /api/v1/rooms/{roomID}/messages.
type SendMessageRequest struct {
	UserID      string `json:"user_id" validate:"required,min=1,max=100"`
	Username    string `json:"username" validate:"max=100"`
	Content     string `json:"content" validate:"required,min=1,max=2000"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text emote system"`
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getTimeParam parses an RFC3339 query parameter. Returns the zero time when
// absent or unparseable.
func getTimeParam(r *http.Request, key string) time.Time {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}

	return t
}

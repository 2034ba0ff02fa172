// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/streamsense/streamsense/internal/rooms"
)

// upgrader builds the WebSocket upgrader with origin validation bound to the
// handler's allowed origins.
func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
}

// checkOrigin validates the Origin header against the configured allowed
// origins. Browser WebSocket clients always send Origin, so an absent header
// is rejected; non-browser clients go through the REST API instead.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		h.logger.Warn().
			Str("remote_addr", r.RemoteAddr).
			Msg("websocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	h.logger.Warn().
		Str("origin", origin).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades the connection and attaches the session to the room
// registry. The session receives every broadcast in the room and may submit
// chat messages over the same connection.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "user_id query parameter is required")
		return
	}

	if _, err := h.chat.Room(roomID); err != nil {
		respondServiceError(w, err)
		return
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn().Err(err).Str("room_id", roomID).Msg("websocket upgrade failed")
		return
	}

	h.logger.Info().
		Str("room_id", roomID).
		Str("user_id", userID).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket session opened")

	rooms.NewClient(h.registry, conn, roomID, userID, h.chat.HandleInbound).Start()
}

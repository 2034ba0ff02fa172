// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/ratelimit"
	"github.com/streamsense/streamsense/internal/recommend"
	"github.com/streamsense/streamsense/internal/rooms"
)

// Handler bundles the service dependencies behind the HTTP endpoints.
type Handler struct {
	chat     *chat.Service
	engine   *recommend.Engine
	limiter  *ratelimit.Limiter
	registry *rooms.Registry

	allowedOrigins []string
	startedAt      time.Time
	logger         zerolog.Logger
}

// NewHandler creates the endpoint handler set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(
	chatSvc *chat.Service,
	engine *recommend.Engine,
	limiter *ratelimit.Limiter,
	registry *rooms.Registry,
	allowedOrigins []string,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		chat:           chatSvc,
		engine:         engine,
		limiter:        limiter,
		registry:       registry,
		allowedOrigins: allowedOrigins,
		startedAt:      time.Now(),
		logger:         logger.With().Str("component", "api").Logger(),
	}
}

// Health reports liveness plus a few cheap gauges.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"active_rooms":   len(h.registry.ActiveRooms()),
		"sessions":       h.registry.SessionCount(),
	})
}

// ListRooms returns all active rooms, newest first.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	roomList := h.chat.Rooms()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"rooms": roomList,
		"count": len(roomList),
	})
}

// CreateRoom creates a chat room.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &APIResponse{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	room, err := h.chat.CreateRoom(r.Context(), req.Name, req.Description, req.StreamerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, room)
}

// GetRoom returns one room's metadata.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.chat.Room(chi.URLParam(r, "roomID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, room)
}

// RoomAnalytics returns aggregate message statistics for a room.
func (h *Handler) RoomAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.chat.Analytics(chi.URLParam(r, "roomID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, analytics)
}

// RoomActiveUsers returns users active in the room within the activity window.
func (h *Handler) RoomActiveUsers(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := h.chat.Room(roomID); err != nil {
		respondServiceError(w, err)
		return
	}

	users := h.chat.ActiveUsers(roomID)
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"users":   users,
		"count":   len(users),
	})
}

// SendMessage posts a chat message through the full accept pipeline:
// validation, rate limiting, history, analytics, events, fan-out.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &APIResponse{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	msg, err := h.chat.SendMessage(r.Context(),
		chi.URLParam(r, "roomID"), req.UserID, req.Username, req.Content, req.MessageType)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, msg)
}

// History returns a page of room history. Supports page/size plus optional
// before/after RFC3339 bounds.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := chat.HistoryQuery{
		Page:   getIntParam(r, "page", 0),
		Size:   getIntParam(r, "size", 50),
		Before: getTimeParam(r, "before"),
		After:  getTimeParam(r, "after"),
	}

	messages, err := h.chat.History(chi.URLParam(r, "roomID"), q)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
		"page":     q.Page,
		"size":     q.Size,
	})
}

// DeleteMessage removes a message. Allowed for the author and moderators.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "user_id query parameter is required")
		return
	}

	if err := h.chat.DeleteMessage(chi.URLParam(r, "messageID"), userID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"deleted": true,
	})
}

// Recommendations returns personalized recommendations for a user.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "user_id is required")
		return
	}
	limit := getIntParam(r, "limit", 10)

	respondSuccess(w, http.StatusOK, h.engine.Recommend(userID, limit))
}

// SimilarItems returns items similar to a given item by feature overlap.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "item_id is required")
		return
	}
	limit := getIntParam(r, "limit", 10)

	respondSuccess(w, http.StatusOK, h.engine.SimilarItems(itemID, limit))
}

// Trending returns the current trending items.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", 10)
	items := h.engine.Trending(limit)

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// StreamStats returns the engine's counters for one stream: viewers,
// activity, running sentiment average and feature tags.
func (h *Handler) StreamStats(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	item, ok := h.engine.Item(itemID)
	if !ok {
		respondError(w, http.StatusNotFound, CodeNotFound, "unknown stream")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"id":              item.ID,
		"viewer_count":    item.ViewerCount,
		"activity_level":  item.ActivityLevel,
		"avg_sentiment":   item.AvgSentiment,
		"sentiment_count": item.SentimentCount,
		"features":        item.FeatureList(),
		"last_updated":    item.LastUpdated,
	})
}

// RateLimitStatus reports the caller's remaining budget without consuming it.
func (h *Handler) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	roomID := chi.URLParam(r, "roomID")
	if userID == "" || roomID == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "user_id and room_id are required")
		return
	}

	respondSuccess(w, http.StatusOK, h.limiter.Status(userID, roomID))
}

// RateLimitReset clears the rate limit state for one (user, room) pair.
func (h *Handler) RateLimitReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	roomID := chi.URLParam(r, "roomID")
	if userID == "" || roomID == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "user_id and room_id are required")
		return
	}

	h.limiter.Reset(userID, roomID)
	h.logger.Info().Str("user_id", userID).Str("room_id", roomID).Msg("rate limit state reset")

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"reset": true,
	})
}

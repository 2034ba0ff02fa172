// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package chat implements the chat room service: room metadata, bounded
// message history, the rate-limited send path, moderation, and per-room
// activity analytics. It composes the rate limiter, the room registry, and
// the recommendation engine; constructed once at startup and passed to
// handlers explicitly.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streamsense/streamsense/internal/cache"
	"github.com/streamsense/streamsense/internal/metrics"
	"github.com/streamsense/streamsense/internal/ratelimit"
	"github.com/streamsense/streamsense/internal/recommend"
	"github.com/streamsense/streamsense/internal/rooms"
)

// EventPublisher forwards chat events to the event bus. Publishing is best
// effort: failures are logged and never surface to the sender.
type EventPublisher interface {
	PublishChatMessage(ctx context.Context, msg Message) error
	PublishSentimentRequest(ctx context.Context, msg Message) error
}

// SideStore receives best-effort snapshots of rooms and messages.
type SideStore interface {
	SaveRoom(ctx context.Context, room Room) error
	SaveMessage(ctx context.Context, msg Message) error
}

// Config holds the chat service settings.
type Config struct {
	// HistoryLimit bounds the per-room message history. The oldest
	// messages are dropped beyond this.
	HistoryLimit int `koanf:"history_limit"`

	// ActivityWindow is how long a user counts as active after acting.
	ActivityWindow time.Duration `koanf:"activity_window"`

	// DefaultRooms are created at startup.
	DefaultRooms []DefaultRoom `koanf:"default_rooms"`
}

// DefaultRoom describes a room created at startup.
type DefaultRoom struct {
	ID          string `koanf:"id"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
}

// DefaultConfig returns the standard rooms and bounds.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:   1000,
		ActivityWindow: 5 * time.Minute,
		DefaultRooms: []DefaultRoom{
			{ID: "general", Name: "general", Description: "General discussion"},
			{ID: "gaming", Name: "gaming", Description: "Gaming discussions"},
			{ID: "tech-talk", Name: "tech-talk", Description: "Technology discussions"},
		},
	}
}

// Service is the chat aggregator. Safe for concurrent use.
type Service struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	limiter  *ratelimit.Limiter
	registry *rooms.Registry
	engine   *recommend.Engine

	publisher EventPublisher
	store     SideStore

	mu       sync.RWMutex
	rooms    map[string]*Room
	messages map[string][]Message

	// activity tracks which users acted in each room within the window.
	activity *cache.UniqueValueStore
}

// NewService creates the chat service and its default rooms.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(cfg Config, limiter *ratelimit.Limiter, registry *rooms.Registry, engine *recommend.Engine, logger zerolog.Logger) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = DefaultConfig().ActivityWindow
	}

	s := &Service{
		cfg:      cfg,
		logger:   logger.With().Str("component", "chat").Logger(),
		now:      time.Now,
		limiter:  limiter,
		registry: registry,
		engine:   engine,
		rooms:    make(map[string]*Room),
		messages: make(map[string][]Message),
		activity: cache.NewUniqueValueStore(cfg.ActivityWindow, 10, 0),
	}

	for _, dr := range cfg.DefaultRooms {
		s.rooms[dr.ID] = &Room{
			ID:          dr.ID,
			Name:        dr.Name,
			Description: dr.Description,
			StreamerID:  "system",
			Active:      true,
			CreatedAt:   s.now(),
		}
		s.messages[dr.ID] = make([]Message, 0)
	}
	s.logger.Info().Int("rooms", len(s.rooms)).Msg("initialized default chat rooms")

	return s
}

// SetPublisher attaches the event bus publisher.
func (s *Service) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// SetStore attaches the best-effort side store.
func (s *Service) SetStore(st SideStore) {
	s.store = st
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.activity = cache.NewUniqueValueStoreWithClock(s.cfg.ActivityWindow, 10, 0, now)
}

// CreateRoom creates a new room. Room IDs are derived from the name plus a
// timestamp so names need not be unique.
func (s *Service) CreateRoom(ctx context.Context, name, description, streamerID string) (Room, error) {
	if name == "" {
		return Room{}, ErrInvalidInput
	}

	now := s.now()
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	roomID := fmt.Sprintf("%s-%d", slug, now.UnixMilli())

	room := Room{
		ID:          roomID,
		Name:        name,
		Description: description,
		StreamerID:  streamerID,
		Active:      true,
		CreatedAt:   now,
	}

	s.mu.Lock()
	s.rooms[roomID] = &room
	s.messages[roomID] = make([]Message, 0)
	s.mu.Unlock()

	s.logger.Info().Str("room_id", roomID).Str("streamer_id", streamerID).Msg("room created")
	s.saveRoomAsync(room)
	return room, nil
}

// Rooms returns all active rooms, newest first.
func (s *Service) Rooms() []Room {
	s.mu.RLock()
	out := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.Active {
			out = append(out, s.snapshotLocked(r))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Room returns one room's metadata with live counters filled in.
func (s *Service) Room(roomID string) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return s.snapshotLocked(r), nil
}

// SendMessage runs the full send path: rate limit, append to history,
// update counters and activity, publish events, and fan out to the room's
// sessions. A rate-limit rejection is definitive; callers must not retry.
func (s *Service) SendMessage(ctx context.Context, roomID, userID, username, content, messageType string) (Message, error) {
	if roomID == "" || userID == "" || content == "" {
		return Message{}, ErrInvalidInput
	}
	if messageType == "" {
		messageType = MessageTypeText
	}

	s.mu.RLock()
	_, exists := s.rooms[roomID]
	s.mu.RUnlock()
	if !exists {
		return Message{}, ErrRoomNotFound
	}

	if !s.limiter.Allow(userID, roomID) {
		s.logger.Debug().Str("user_id", userID).Str("room_id", roomID).Msg("message rejected by rate limiter")
		return Message{}, ErrRateLimited
	}

	now := s.now()
	msg := Message{
		ID:          generateMessageID(now),
		RoomID:      roomID,
		UserID:      userID,
		Username:    username,
		Content:     content,
		MessageType: messageType,
		Timestamp:   now,
	}

	s.mu.Lock()
	history := append(s.messages[roomID], msg)
	if len(history) > s.cfg.HistoryLimit {
		history = history[len(history)-s.cfg.HistoryLimit:]
	}
	s.messages[roomID] = history
	s.rooms[roomID].MessageCount++
	s.mu.Unlock()

	s.activity.Add(roomID, userID)
	metrics.ChatMessagesTotal.WithLabelValues(roomID).Inc()

	if s.engine != nil {
		if err := s.engine.RecordInteraction(userID, roomID, recommend.InteractionChat, now); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record chat interaction")
		}
	}

	s.publishAsync(msg)
	s.saveMessageAsync(msg)

	s.registry.Broadcast(roomID, rooms.Message{
		Type:      rooms.MessageTypeChat,
		RoomID:    roomID,
		Data:      msg,
		Timestamp: now,
	})

	s.logger.Debug().Str("message_id", msg.ID).Str("room_id", roomID).Msg("message sent")
	return msg, nil
}

// History returns a page of a room's message history, oldest first.
// Before/After bound the timestamps when set.
func (s *Service) History(roomID string, q HistoryQuery) ([]Message, error) {
	if q.Size <= 0 {
		q.Size = 50
	}
	if q.Page < 0 {
		q.Page = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}

	all := s.messages[roomID]
	filtered := make([]Message, 0, len(all))
	for _, m := range all {
		if !q.Before.IsZero() && m.Timestamp.After(q.Before) {
			continue
		}
		if !q.After.IsZero() && m.Timestamp.Before(q.After) {
			continue
		}
		filtered = append(filtered, m)
	}

	start := q.Page * q.Size
	if start >= len(filtered) {
		return []Message{}, nil
	}
	end := start + q.Size
	if end > len(filtered) {
		end = len(filtered)
	}

	out := make([]Message, end-start)
	copy(out, filtered[start:end])
	return out, nil
}

// DeleteMessage removes a message. Only the author, "admin", or users with
// a "mod_" prefix may delete.
func (s *Service) DeleteMessage(messageID, userID string) error {
	if messageID == "" || userID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, history := range s.messages {
		for i, m := range history {
			if m.ID != messageID {
				continue
			}
			if m.UserID != userID && !isModerator(userID) {
				return ErrForbidden
			}
			s.messages[roomID] = append(history[:i], history[i+1:]...)
			s.logger.Info().
				Str("message_id", messageID).
				Str("deleted_by", userID).
				Str("room_id", roomID).
				Msg("message deleted")
			return nil
		}
	}
	return ErrMessageNotFound
}

// ActiveUsers returns the users who acted in the room within the activity
// window, sorted.
func (s *Service) ActiveUsers(roomID string) []string {
	users := s.activity.GetUnique(roomID)
	sort.Strings(users)
	if users == nil {
		return []string{}
	}
	return users
}

// Analytics computes a room's activity summary.
func (s *Service) Analytics(roomID string) (Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return Analytics{}, ErrRoomNotFound
	}

	history := s.messages[roomID]
	hourAgo := s.now().Add(-time.Hour)

	recent := 0
	types := make(map[string]int64)
	top := make(map[string]int64)
	for _, m := range history {
		if m.Timestamp.After(hourAgo) {
			recent++
		}
		types[m.MessageType]++
		top[m.Username]++
	}

	return Analytics{
		RoomID:         roomID,
		TotalMessages:  len(history),
		RecentMessages: recent,
		ActiveUsers:    s.activity.CountUnique(roomID),
		MessageTypes:   types,
		TopUsers:       top,
		CreatedAt:      r.CreatedAt,
		Active:         r.Active,
	}, nil
}

// HandleInbound is the rooms.InboundHandler for websocket traffic: chat
// payloads read from a connection run through the same send path as the
// HTTP API. Errors are logged only; there is no reply channel.
func (s *Service) HandleInbound(roomID, userID string, msg rooms.Message) {
	content, ok := msg.Data.(string)
	if !ok || content == "" {
		if m, isMap := msg.Data.(map[string]interface{}); isMap {
			content, _ = m["content"].(string)
		}
	}
	if content == "" {
		return
	}

	if _, err := s.SendMessage(context.Background(), roomID, userID, userID, content, MessageTypeText); err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID).Str("room_id", roomID).Msg("inbound message rejected")
	}
}

// snapshotLocked copies room metadata and fills live counters.
// Caller must hold at least a read lock.
func (s *Service) snapshotLocked(r *Room) Room {
	out := *r
	out.ActiveUserCount = s.activity.CountUnique(r.ID)
	return out
}

func (s *Service) publishAsync(msg Message) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.PublishChatMessage(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to publish chat message event")
		}
		if msg.MessageType == MessageTypeText {
			if err := s.publisher.PublishSentimentRequest(ctx, msg); err != nil {
				s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to publish sentiment request")
			}
		}
	}()
}

func (s *Service) saveRoomAsync(room Room) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.SaveRoom(ctx, room); err != nil {
			s.logger.Warn().Err(err).Str("room_id", room.ID).Msg("room snapshot write failed")
		}
	}()
}

func (s *Service) saveMessageAsync(msg Message) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.SaveMessage(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("message snapshot write failed")
		}
	}()
}

// generateMessageID builds IDs like msg-1736942400000-a1b2c3d4.
func generateMessageID(now time.Time) string {
	return fmt.Sprintf("msg-%d-%s", now.UnixMilli(), uuid.New().String()[:8])
}

// isModerator reports whether a user may delete others' messages.
func isModerator(userID string) bool {
	return userID == "admin" || strings.HasPrefix(userID, "mod_")
}

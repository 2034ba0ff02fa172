// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package rooms implements the room/session registry with real-time fan-out.
//
// A room exists while it has at least one connected session: it is created
// on first join and removed when the last session leaves. Broadcasts are
// delivered to every live session in deterministic session-ID order; dead
// sessions are removed silently during delivery.
package rooms

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/streamsense/streamsense/internal/logging"
	"github.com/streamsense/streamsense/internal/metrics"
)

// ShutdownReason identifies why the registry loop is stopping.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// room holds the live state for one room.
type room struct {
	id           string
	sessions     map[string]Session // keyed by session ID
	messageCount uint64             // monotonic, survives membership churn
}

// Registry maintains rooms and their connected sessions and fans broadcasts
// out to them. Join and Leave take effect immediately; Broadcast enqueues
// onto an internal channel drained by RunWithContext.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room

	broadcast chan Message
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[string]*room),
		broadcast: make(chan Message, 256),
	}
}

// Join adds a session to a room, creating the room on first join.
// The new participant count is broadcast to the room, including the
// joining session.
func (r *Registry) Join(roomID string, s Session) {
	if roomID == "" || s == nil {
		return
	}

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{id: roomID, sessions: make(map[string]Session)}
		r.rooms[roomID] = rm
		metrics.RoomsActive.Inc()
		logging.Info().Str("room_id", roomID).Msg("room activated")
	}
	rm.sessions[s.ID()] = s
	count := len(rm.sessions)
	r.mu.Unlock()

	metrics.RoomSessionsActive.Inc()
	logging.Debug().
		Str("room_id", roomID).
		Str("session_id", s.ID()).
		Int("participants", count).
		Msg("session joined room")

	r.Broadcast(roomID, Message{
		Type:      MessageTypeUserJoined,
		RoomID:    roomID,
		Data:      PresenceData{RoomID: roomID, UserID: s.UserID()},
		Timestamp: time.Now().UTC(),
	})
	r.broadcastParticipantCount(roomID, count)
}

// Leave removes a session from a room. When the last session leaves, the
// room entry is removed entirely.
func (r *Registry) Leave(roomID string, s Session) {
	if roomID == "" || s == nil {
		return
	}

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, present := rm.sessions[s.ID()]; !present {
		r.mu.Unlock()
		return
	}
	delete(rm.sessions, s.ID())
	count := len(rm.sessions)
	if count == 0 {
		delete(r.rooms, roomID)
		metrics.RoomsActive.Dec()
	}
	r.mu.Unlock()

	metrics.RoomSessionsActive.Dec()
	logging.Debug().
		Str("room_id", roomID).
		Str("session_id", s.ID()).
		Int("participants", count).
		Msg("session left room")

	if count > 0 {
		r.Broadcast(roomID, Message{
			Type:      MessageTypeUserLeft,
			RoomID:    roomID,
			Data:      PresenceData{RoomID: roomID, UserID: s.UserID()},
			Timestamp: time.Now().UTC(),
		})
		r.broadcastParticipantCount(roomID, count)
	} else {
		logging.Info().Str("room_id", roomID).Msg("room emptied")
	}
}

// Broadcast enqueues a message for fan-out to every session in the room.
// If the queue is full the message is dropped and counted.
func (r *Registry) Broadcast(roomID string, msg Message) {
	if msg.RoomID == "" {
		msg.RoomID = roomID
	}
	select {
	case r.broadcast <- msg:
	default:
		metrics.BroadcastDrops.WithLabelValues("channel_full").Inc()
		logging.Warn().
			Str("room_id", roomID).
			Str("message_type", msg.Type).
			Msg("broadcast channel full, dropping message")
	}
}

// Participants returns the number of sessions currently in a room.
// A room that does not exist has zero participants.
func (r *Registry) Participants(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(rm.sessions)
}

// Exists reports whether a room currently has any sessions.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// ActiveRooms returns the IDs of all rooms with at least one session,
// sorted for stable output.
func (r *Registry) ActiveRooms() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// MessageCount returns the monotonic broadcast counter for a room.
// Returns 0 for rooms that no longer exist.
func (r *Registry) MessageCount(roomID string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return rm.messageCount
}

// SessionCount returns the total number of sessions across all rooms.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, rm := range r.rooms {
		total += len(rm.sessions)
	}
	return total
}

// RunWithContext drains the broadcast queue until the context is canceled.
// Designed for suture supervision: on cancellation all sessions are closed
// so a restarted registry starts clean.
//
// Shutdown takes priority over pending broadcasts.
func (r *Registry) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			r.shutdown(ctx)
			return ctx.Err()
		case msg := <-r.broadcast:
			r.fanOut(msg)
		}
	}
}

// fanOut delivers one message to every session in its room, in session-ID
// order. Sessions that refuse delivery are removed and closed; if that
// empties the room, the room entry is removed.
func (r *Registry) fanOut(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[msg.RoomID]
	if !ok {
		return
	}

	ids := make([]string, 0, len(rm.sessions))
	for id := range rm.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var dead []string
	for _, id := range ids {
		if !rm.sessions[id].Send(msg) {
			dead = append(dead, id)
		}
	}

	for _, id := range dead {
		s := rm.sessions[id]
		delete(rm.sessions, id)
		s.Close()
		metrics.BroadcastDrops.WithLabelValues("dead_session").Inc()
		metrics.RoomSessionsActive.Dec()
		logging.Debug().
			Str("room_id", msg.RoomID).
			Str("session_id", id).
			Msg("removed dead session during broadcast")
	}

	rm.messageCount++
	metrics.BroadcastsTotal.Inc()

	if len(rm.sessions) == 0 {
		delete(r.rooms, msg.RoomID)
		metrics.RoomsActive.Dec()
		logging.Info().Str("room_id", msg.RoomID).Msg("room emptied")
	}
}

func (r *Registry) broadcastParticipantCount(roomID string, count int) {
	r.Broadcast(roomID, Message{
		Type:      MessageTypeParticipantCount,
		RoomID:    roomID,
		Data:      ParticipantCountData{RoomID: roomID, Count: count},
		Timestamp: time.Now().UTC(),
	})
}

// shutdown closes every session and clears all rooms.
func (r *Registry) shutdown(ctx context.Context) {
	r.mu.Lock()
	closed := 0
	for id, rm := range r.rooms {
		for _, s := range rm.sessions {
			s.Close()
			closed++
			metrics.RoomSessionsActive.Dec()
		}
		delete(r.rooms, id)
		metrics.RoomsActive.Dec()
	}
	r.mu.Unlock()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "room-registry").
		Str("reason", string(reason)).
		Int("sessions_closed", closed).
		Msg("room registry stopped")
}

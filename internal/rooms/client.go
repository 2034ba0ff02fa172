// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package rooms

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamsense/streamsense/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB, chat payloads are small
)

// clientIDCounter generates monotonically increasing session IDs so
// broadcast ordering is stable across map iteration.
var clientIDCounter atomic.Uint64

// InboundHandler receives messages read from a client connection.
// The chat service implements this to run the send-message path.
type InboundHandler func(roomID, userID string, msg Message)

// Client adapts a gorilla websocket connection to the Session interface.
type Client struct {
	id     string
	userID string
	roomID string

	registry *Registry
	conn     *websocket.Conn
	send     chan Message
	inbound  InboundHandler

	// mu guards closed so Send never races a concurrent Close.
	mu     sync.RWMutex
	closed bool
}

// NewClient wraps a websocket connection as a room session.
func NewClient(registry *Registry, conn *websocket.Conn, roomID, userID string, inbound InboundHandler) *Client {
	return &Client{
		id:       fmt.Sprintf("sess-%012d", clientIDCounter.Add(1)),
		userID:   userID,
		roomID:   roomID,
		registry: registry,
		conn:     conn,
		send:     make(chan Message, 256),
		inbound:  inbound,
	}
}

// ID returns the session identifier used for deterministic ordering.
func (c *Client) ID() string {
	return c.id
}

// UserID returns the user this session belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// Send queues a message for delivery. It never blocks: a full queue means
// the connection is backed up and the registry should drop the session.
// Returns false once the session is closed.
func (c *Client) Send(msg Message) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close shuts the outbound queue. Safe to call more than once; the write
// pump sends a close frame and tears down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Start joins the room and begins the read and write pumps.
func (c *Client) Start() {
	c.registry.Join(c.roomID, c)
	go c.writePump()
	go c.readPump()
}

// readPump reads messages from the connection and forwards chat messages
// to the inbound handler. On any read error the session leaves its room.
func (c *Client) readPump() {
	defer func() {
		c.registry.Leave(c.roomID, c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("session_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		switch msg.Type {
		case MessageTypePing:
			c.Send(Message{Type: MessageTypePong, RoomID: c.roomID, Timestamp: time.Now().UTC()})
		default:
			if c.inbound != nil {
				c.inbound(c.roomID, c.userID, msg)
			}
		}
	}
}

// writePump writes queued messages to the connection and keeps it alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Str("session_id", c.id).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

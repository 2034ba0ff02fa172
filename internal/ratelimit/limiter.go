// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package ratelimit enforces per-user, per-room message rate limits.
//
// Three checks apply in order: a cooldown between consecutive accepted
// actions, a per-minute ceiling, and a per-hour ceiling. Counters use true
// sliding windows, so a burst straddling a minute boundary cannot bypass
// the ceiling.
package ratelimit

import (
	"sync"
	"time"

	"github.com/streamsense/streamsense/internal/cache"
	"github.com/streamsense/streamsense/internal/metrics"
)

// Outcome labels for metrics and status reporting.
const (
	OutcomeAllowed     = "allowed"
	OutcomeCooldown    = "cooldown"
	OutcomeMinuteLimit = "minute_limit"
	OutcomeHourLimit   = "hour_limit"
	OutcomeInvalid     = "invalid"
)

// Config holds the limiter ceilings.
type Config struct {
	// Cooldown is the minimum time between two accepted actions by the
	// same user in the same room.
	Cooldown time.Duration `koanf:"cooldown"`

	// PerMinute is the ceiling of accepted actions per rolling minute.
	PerMinute int64 `koanf:"per_minute"`

	// PerHour is the ceiling of accepted actions per rolling hour.
	PerHour int64 `koanf:"per_hour"`

	// MaxKeys bounds the number of tracked (user, room) pairs.
	// 0 means unlimited.
	MaxKeys int `koanf:"max_keys"`
}

// DefaultConfig returns the standard chat limits.
func DefaultConfig() Config {
	return Config{
		Cooldown:  2 * time.Second,
		PerMinute: 30,
		PerHour:   500,
		MaxKeys:   100000,
	}
}

// Status is a snapshot of a (user, room) pair's current standing.
type Status struct {
	UserID          string    `json:"user_id"`
	RoomID          string    `json:"room_id"`
	MinuteCount     int64     `json:"minute_count"`
	MinuteRemaining int64     `json:"minute_remaining"`
	HourCount       int64     `json:"hour_count"`
	HourRemaining   int64     `json:"hour_remaining"`
	InCooldown      bool      `json:"in_cooldown"`
	LastAction      time.Time `json:"last_action,omitempty"`
}

// Limiter enforces message rate limits keyed by (user, room).
// A rejection is definitive: callers must surface it to the client
// (HTTP 429), never retry internally.
type Limiter struct {
	cfg Config
	now func() time.Time

	minute *cache.SlidingWindowStore
	hour   *cache.SlidingWindowStore

	mu         sync.Mutex
	lastAction map[string]time.Time
}

// New creates a limiter with the given config.
func New(cfg Config) *Limiter {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock creates a limiter with an injectable clock for tests.
func NewWithClock(cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultConfig().PerMinute
	}
	if cfg.PerHour <= 0 {
		cfg.PerHour = DefaultConfig().PerHour
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}

	return &Limiter{
		cfg:        cfg,
		now:        now,
		minute:     cache.NewSlidingWindowStoreWithClock(time.Minute, 12, cfg.MaxKeys, now),
		hour:       cache.NewSlidingWindowStoreWithClock(time.Hour, 60, cfg.MaxKeys, now),
		lastAction: make(map[string]time.Time),
	}
}

// Allow reports whether the user may act in the room right now.
// On acceptance both counters increment and the cooldown timestamp updates.
// Empty identifiers are rejected outright.
func (l *Limiter) Allow(userID, roomID string) bool {
	outcome := l.check(userID, roomID)
	metrics.RecordRateLimitDecision(outcome)
	return outcome == OutcomeAllowed
}

// Check returns the outcome label without recording metrics twice.
func (l *Limiter) check(userID, roomID string) string {
	if userID == "" || roomID == "" {
		return OutcomeInvalid
	}

	key := limitKey(userID, roomID)
	now := l.now()

	l.mu.Lock()
	last, seen := l.lastAction[key]
	if seen && l.cfg.Cooldown > 0 && now.Sub(last) < l.cfg.Cooldown {
		l.mu.Unlock()
		return OutcomeCooldown
	}
	l.mu.Unlock()

	if l.minute.Count(key) >= l.cfg.PerMinute {
		return OutcomeMinuteLimit
	}
	if l.hour.Count(key) >= l.cfg.PerHour {
		return OutcomeHourLimit
	}

	l.mu.Lock()
	l.lastAction[key] = now
	l.mu.Unlock()
	l.minute.Increment(key)
	l.hour.Increment(key)

	return OutcomeAllowed
}

// Status returns the current standing for a (user, room) pair without
// consuming any budget.
func (l *Limiter) Status(userID, roomID string) Status {
	key := limitKey(userID, roomID)
	now := l.now()

	minuteCount := l.minute.Count(key)
	hourCount := l.hour.Count(key)

	l.mu.Lock()
	last, seen := l.lastAction[key]
	l.mu.Unlock()

	s := Status{
		UserID:          userID,
		RoomID:          roomID,
		MinuteCount:     minuteCount,
		MinuteRemaining: max64(0, l.cfg.PerMinute-minuteCount),
		HourCount:       hourCount,
		HourRemaining:   max64(0, l.cfg.PerHour-hourCount),
	}
	if seen {
		s.LastAction = last
		s.InCooldown = l.cfg.Cooldown > 0 && now.Sub(last) < l.cfg.Cooldown
	}
	return s
}

// Reset clears all counters and the cooldown timestamp for a (user, room)
// pair. Used by moderation tooling.
func (l *Limiter) Reset(userID, roomID string) {
	key := limitKey(userID, roomID)

	l.minute.Remove(key)
	l.hour.Remove(key)

	l.mu.Lock()
	delete(l.lastAction, key)
	l.mu.Unlock()
}

// CleanupInactive drops tracking state for pairs with no recent activity.
// Returns the number of entries removed across both windows.
func (l *Limiter) CleanupInactive() int {
	removed := l.minute.CleanupInactive()
	removed += l.hour.CleanupInactive()

	l.mu.Lock()
	cutoff := l.now().Add(-time.Hour)
	for key, last := range l.lastAction {
		if last.Before(cutoff) {
			delete(l.lastAction, key)
		}
	}
	l.mu.Unlock()

	return removed
}

func limitKey(userID, roomID string) string {
	return userID + "|" + roomID
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package store provides the best-effort key-value side channel backed by
// BadgerDB. Computed state (profiles, rooms, messages, recommendation
// snapshots) is written with a TTL so a restarted process can warm up from
// recent state. Writers treat failures as log-and-continue; nothing in the
// hot path depends on the store.
package store

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/metrics"
	"github.com/streamsense/streamsense/internal/recommend"
)

// Config holds the store settings.
type Config struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir string `koanf:"dir"`

	// InMemory runs badger without persistence. Used in tests and
	// ephemeral deployments.
	InMemory bool `koanf:"in_memory"`

	// TTL applies to every entry.
	TTL time.Duration `koanf:"ttl"`
}

// DefaultConfig returns the standard store settings.
func DefaultConfig() Config {
	return Config{
		Dir: "./data/store",
		TTL: 24 * time.Hour,
	}
}

// Store is the badger-backed side cache. Implements the SideStore
// interfaces of the chat service and the recommendation engine.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// New opens the store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &Store{
		db:     db,
		ttl:    cfg.TTL,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProfile writes a user profile snapshot.
func (s *Store) SaveProfile(ctx context.Context, profile recommend.UserProfile) error {
	return s.put(ctx, "profile", "profile:"+profile.UserID, profile)
}

// SaveRecommendations writes the latest computed recommendations for a subject.
func (s *Store) SaveRecommendations(ctx context.Context, subjectID string, items []string) error {
	return s.put(ctx, "recommendation", "recs:"+subjectID, items)
}

// SaveRoom writes a room metadata snapshot.
func (s *Store) SaveRoom(ctx context.Context, room chat.Room) error {
	return s.put(ctx, "room", "room:"+room.ID, room)
}

// SaveMessage writes a chat message.
func (s *Store) SaveMessage(ctx context.Context, msg chat.Message) error {
	return s.put(ctx, "message", "msg:"+msg.ID, msg)
}

// Profile reads a stored profile snapshot.
func (s *Store) Profile(ctx context.Context, userID string) (recommend.UserProfile, error) {
	var out recommend.UserProfile
	err := s.get(ctx, "profile:"+userID, &out)
	return out, err
}

// Recommendations reads the last stored recommendations for a subject.
func (s *Store) Recommendations(ctx context.Context, subjectID string) ([]string, error) {
	var out []string
	err := s.get(ctx, "recs:"+subjectID, &out)
	return out, err
}

// Room reads a stored room snapshot.
func (s *Store) Room(ctx context.Context, roomID string) (chat.Room, error) {
	var out chat.Room
	err := s.get(ctx, "room:"+roomID, &out)
	return out, err
}

// Message reads a stored message.
func (s *Store) Message(ctx context.Context, messageID string) (chat.Message, error) {
	var out chat.Message
	err := s.get(ctx, "msg:"+messageID, &out)
	return out, err
}

// put serializes and writes one entry with the configured TTL.
func (s *Store) put(ctx context.Context, kind, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		metrics.StoreWrites.WithLabelValues(kind, "error").Inc()
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		metrics.StoreWrites.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		metrics.StoreWrites.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("write %s: %w", kind, err)
	}

	metrics.StoreWrites.WithLabelValues(kind, "ok").Inc()
	return nil
}

// get reads and deserializes one entry. Returns badger.ErrKeyNotFound for
// missing or expired entries.
func (s *Store) get(ctx context.Context, key string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

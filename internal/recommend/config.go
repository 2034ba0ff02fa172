// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package recommend

import (
	"fmt"
	"time"
)

// Config controls the recommendation engine thresholds and bounds.
type Config struct {
	// CollaborativeThreshold is the minimum Jaccard similarity for a user
	// to count as a neighbor.
	CollaborativeThreshold float64 `koanf:"collaborative_threshold"`

	// ContentThreshold is the minimum feature similarity for an item to be
	// a content-based candidate.
	ContentThreshold float64 `koanf:"content_threshold"`

	// TopNeighbors is the number of most-similar users consulted.
	TopNeighbors int `koanf:"top_neighbors"`

	// ItemsPerNeighbor caps contributions per neighbor for diversity.
	ItemsPerNeighbor int `koanf:"items_per_neighbor"`

	// MaxItems bounds the content arena (LRU eviction beyond this).
	MaxItems int `koanf:"max_items"`

	// MaxRecentInteractions bounds the trending history by count.
	MaxRecentInteractions int `koanf:"max_recent_interactions"`

	// CacheTTL is how long computed responses stay cached.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// Fallback is the static trending list used to pad sparse results.
	Fallback []string `koanf:"fallback"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CollaborativeThreshold: 0.1,
		ContentThreshold:       0.3,
		TopNeighbors:           5,
		ItemsPerNeighbor:       3,
		MaxItems:               50000,
		MaxRecentInteractions:  10000,
		CacheTTL:               30 * time.Second,
		Fallback: []string{
			"trending-gaming-stream",
			"trending-music-stream",
			"trending-talk-show",
			"trending-esports-stream",
			"trending-art-stream",
		},
	}
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	if c.CollaborativeThreshold < 0 || c.CollaborativeThreshold > 1 {
		return fmt.Errorf("collaborative_threshold must be in [0,1], got %f", c.CollaborativeThreshold)
	}
	if c.ContentThreshold < 0 || c.ContentThreshold > 1 {
		return fmt.Errorf("content_threshold must be in [0,1], got %f", c.ContentThreshold)
	}
	if c.TopNeighbors <= 0 {
		return fmt.Errorf("top_neighbors must be positive, got %d", c.TopNeighbors)
	}
	if c.ItemsPerNeighbor <= 0 {
		return fmt.Errorf("items_per_neighbor must be positive, got %d", c.ItemsPerNeighbor)
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max_items must be positive, got %d", c.MaxItems)
	}
	if c.MaxRecentInteractions <= 0 {
		return fmt.Errorf("max_recent_interactions must be positive, got %d", c.MaxRecentInteractions)
	}
	return nil
}

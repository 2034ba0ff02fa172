// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package recommend

import (
	"strings"
	"time"
)

// InteractionType classifies how a user engaged with a stream.
type InteractionType string

const (
	InteractionView      InteractionType = "view"
	InteractionChat      InteractionType = "chat"
	InteractionLike      InteractionType = "like"
	InteractionShare     InteractionType = "share"
	InteractionSubscribe InteractionType = "subscribe"
)

// Weight returns the preference weight contributed by an interaction.
// Stronger engagement signals carry more weight.
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionView:
		return 0.1
	case InteractionLike:
		return 0.3
	case InteractionShare:
		return 0.5
	case InteractionSubscribe:
		return 0.8
	default:
		return 0.05
	}
}

// UserProfile holds the aggregated state for one user. Profiles are owned
// exclusively by the engine; callers receive copies via Snapshot.
type UserProfile struct {
	UserID string `json:"user_id"`

	// Preferences maps category to an accumulated preference weight.
	Preferences map[string]float64 `json:"preferences"`

	// Engagement is an exponential moving average in [0,1].
	Engagement float64 `json:"engagement"`

	// SentimentHistory maps item ID to the last observed sentiment.
	SentimentHistory map[string]float64 `json:"sentiment_history"`

	LastActive time.Time `json:"last_active"`
}

// ContentItem describes a stream or room known to the engine. Items live in
// an LRU-bounded arena so the catalog cannot grow without limit.
type ContentItem struct {
	ID string `json:"id"`

	// Features is the tag set used for content-based similarity.
	Features map[string]struct{} `json:"-"`

	ViewerCount   int64 `json:"viewer_count"`
	ActivityLevel int64 `json:"activity_level"`

	// AvgSentiment is a running average over all sentiment events seen
	// for this item.
	AvgSentiment   float64 `json:"avg_sentiment"`
	SentimentCount int64   `json:"sentiment_count"`

	LastUpdated time.Time `json:"last_updated"`
}

// FeatureList returns the item's features as a slice, for serialization.
func (c *ContentItem) FeatureList() []string {
	out := make([]string, 0, len(c.Features))
	for f := range c.Features {
		out = append(out, f)
	}
	return out
}

// Interaction is one (user, item, type) event. Recent interactions feed the
// trending computation and are evicted by count, not age.
type Interaction struct {
	UserID    string          `json:"user_id"`
	ItemID    string          `json:"item_id"`
	Type      InteractionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// Response is a computed recommendation result.
type Response struct {
	SubjectID       string   `json:"subject_id"`
	Recommendations []string `json:"recommendations"`
	Algorithm       string   `json:"algorithm"`
	Confidence      float64  `json:"confidence"`
	FallbackCount   int      `json:"fallback_count"`
}

// Jaccard computes |A∩B| / |A∪B| for two string sets.
// An empty union is defined as 0.0, not an error.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// extractCategory derives a coarse category from an item identifier.
func extractCategory(itemID string) string {
	switch {
	case strings.Contains(itemID, "gaming"):
		return "gaming"
	case strings.Contains(itemID, "music"):
		return "music"
	case strings.Contains(itemID, "sports"):
		return "sports"
	case strings.Contains(itemID, "talk"):
		return "talk"
	case strings.Contains(itemID, "art"):
		return "art"
	default:
		return "general"
	}
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
